// Package request models the four request kinds of the Brein API. Each entity
// builds a fresh request document on demand:
//
//	{apiKey, unixTimestamp, user: {..., additional: {...}}, <kind subtree>}
//
// Only fields that hold a value are written (see document.ContainsValue).
// Building never mutates the entity or its user.
package request

import (
	"time"

	"brein.evalgo.org/brerr"
	"brein.evalgo.org/config"
	"brein.evalgo.org/document"
)

// Top-level document keys.
const (
	APIKeyKey        = "apiKey"
	UnixTimestampKey = "unixTimestamp"
)

// Kind identifies a request kind.
type Kind int

const (
	KindActivity Kind = iota + 1
	KindLookup
	KindTemporalData
	KindRecommendation
)

// String returns the endpoint name of the kind, e.g. "activity".
func (k Kind) String() string {
	switch k {
	case KindActivity:
		return "activity"
	case KindLookup:
		return "lookup"
	case KindTemporalData:
		return "temporaldata"
	case KindRecommendation:
		return "recommendation"
	default:
		return "unknown"
	}
}

// Entity is implemented by every request kind.
type Entity interface {
	Kind() Kind

	// Endpoint returns the path below cfg.BaseURL
	Endpoint(cfg *config.Config) string

	// BuildDocument assembles the request document
	BuildDocument(cfg *config.Config) (document.Document, error)

	// SignatureMessage returns the canonical message of a built document
	SignatureMessage(doc document.Document) string
}

// Base holds what all request kinds share: the timestamp and the user.
type Base struct {
	user          *User
	unixTimestamp int64
	clock         func() time.Time
}

// User returns the user the request is about.
func (b *Base) User() *User {
	return b.user
}

// SetUser sets the user. The user is referenced, not copied.
func (b *Base) SetUser(user *User) {
	b.user = user
}

// UnixTimestamp returns the request timestamp in seconds. The first read
// assigns the current time; later reads return the same value.
func (b *Base) UnixTimestamp() int64 {
	if b.unixTimestamp == 0 {
		now := time.Now
		if b.clock != nil {
			now = b.clock
		}
		b.unixTimestamp = now().Unix()
	}
	return b.unixTimestamp
}

// SetUnixTimestamp overrides the timestamp. Zero resets it so the next read
// assigns the current time again.
func (b *Base) SetUnixTimestamp(ts int64) {
	b.unixTimestamp = ts
}

// SetClock replaces the time source used for the lazy timestamp.
func (b *Base) SetClock(clock func() time.Time) {
	b.clock = clock
}

// baseDocument assembles the fields shared by all kinds.
func (b *Base) baseDocument(cfg *config.Config, op string, requireUser bool) (document.Document, error) {
	if cfg == nil {
		return nil, brerr.Validation(op, "configuration is required")
	}
	if requireUser && b.user == nil {
		return nil, brerr.Validation(op, "user is required")
	}

	doc := document.New()
	if cfg.APIKey != "" {
		doc[APIKeyKey] = cfg.APIKey
	}
	doc[UnixTimestampKey] = b.UnixTimestamp()

	if b.user != nil {
		if userDoc := b.user.Document(); len(userDoc) > 0 {
			doc[UserKey] = userDoc
		}
	}
	return doc, nil
}
