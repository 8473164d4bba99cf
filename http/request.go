// Package http is the wire transport of the SDK: it POSTs JSON request
// documents and returns the raw response.
package http

import "time"

// Media type of request and response bodies.
const ContentTypeJSON = "application/json"

// Request represents a single HTTP operation
type Request struct {
	// HTTP basics
	Method string // POST unless set otherwise
	URL    string // Target URL

	// Headers added after the defaults; may override them
	Headers map[string]string

	// JSONBody is sent as application/json
	JSONBody []byte

	// UserAgent overrides the client's User-Agent
	UserAgent string
}

// NewRequest creates a new Request with sensible defaults
func NewRequest(method, url string) *Request {
	return &Request{
		Method:  method,
		URL:     url,
		Headers: make(map[string]string),
	}
}

// NewJSONRequest creates a POST request carrying body as JSON.
func NewJSONRequest(url string, body []byte) *Request {
	req := NewRequest("POST", url)
	req.JSONBody = body
	return req
}

// Response represents an HTTP response with metadata
type Response struct {
	StatusCode int               // HTTP status code
	Status     string            // HTTP status message
	Headers    map[string]string // Response headers
	Body       []byte            // Response body
	Duration   time.Duration     // Request duration
}

// BodyString returns the body as a string.
func (r *Response) BodyString() string {
	return string(r.Body)
}

// IsSuccess returns true if status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsClientError returns true if status code is 4xx
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError returns true if status code is 5xx
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}
