// Package result wraps response bodies of the Brein API.
package result

import (
	"strings"

	"brein.evalgo.org/document"
)

// MessageKey holds the human readable message of a response.
const MessageKey = "message"

// Result is a decoded response together with its HTTP status. It is read-only
// after construction.
type Result struct {
	doc        document.Document
	raw        []byte
	StatusCode int
	Status     string
}

// New wraps doc. A nil doc is treated as empty.
func New(doc document.Document, statusCode int) *Result {
	if doc == nil {
		doc = document.New()
	}
	return &Result{doc: doc, StatusCode: statusCode}
}

// Parse decodes a JSON response body. An empty body yields an empty result.
// On a decoding error the returned result still carries the status and the
// raw body.
func Parse(body []byte, statusCode int, status string) (*Result, error) {
	r := &Result{
		doc:        document.New(),
		raw:        body,
		StatusCode: statusCode,
		Status:     status,
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return r, nil
	}

	doc, err := document.Parse(body)
	if err != nil {
		return r, err
	}
	r.doc = doc
	return r, nil
}

// IsSuccess reports a 2xx status.
func (r *Result) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get returns the top-level value for key, nil if absent.
func (r *Result) Get(key string) interface{} {
	return r.doc[key]
}

// Has reports whether key is present, even if its value is null.
func (r *Result) Has(key string) bool {
	_, ok := r.doc[key]
	return ok
}

// GetString returns the top-level string for key.
func (r *Result) GetString(key string) string {
	return r.doc.GetString(key)
}

// GetNested walks path. The boolean is false when the path is absent or runs
// through a value that is not a mapping.
func (r *Result) GetNested(path ...string) (interface{}, bool) {
	return r.doc.Get(path...)
}

// HasNested reports whether path is present.
func (r *Result) HasNested(path ...string) bool {
	return r.doc.Has(path...)
}

// Message returns the message of the response. Without a message key, failed
// responses fall back to the raw body, then to the status line.
func (r *Result) Message() string {
	if msg, ok := r.doc[MessageKey].(string); ok {
		return msg
	}
	if r.IsSuccess() {
		return ""
	}
	if raw := strings.TrimSpace(string(r.raw)); raw != "" {
		return raw
	}
	return r.Status
}

// Raw returns the undecoded response body.
func (r *Result) Raw() []byte {
	return r.raw
}

// Map returns a deep copy of the decoded body.
func (r *Result) Map() document.Document {
	return document.CopyDocument(r.doc)
}
