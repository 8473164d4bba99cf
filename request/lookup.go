package request

import (
	"brein.evalgo.org/config"
	"brein.evalgo.org/document"
	"brein.evalgo.org/signature"
)

// Keys of the lookup subtree.
const (
	LookupKey           = "lookup"
	LookupDimensionsKey = "dimensions"
)

// Lookup asks for attributes (dimensions) of the user.
type Lookup struct {
	Base

	dimensions []string
}

// NewLookup creates a lookup of the given dimensions for user.
func NewLookup(user *User, dimensions ...string) *Lookup {
	l := &Lookup{}
	l.SetUser(user)
	l.SetDimensions(dimensions...)
	return l
}

// Kind implements Entity.
func (l *Lookup) Kind() Kind { return KindLookup }

// Endpoint implements Entity.
func (l *Lookup) Endpoint(cfg *config.Config) string { return cfg.Endpoint(KindLookup.String()) }

// SetDimensions replaces the dimensions. Order is kept.
func (l *Lookup) SetDimensions(dimensions ...string) *Lookup {
	l.dimensions = make([]string, 0, len(dimensions))
	for _, d := range dimensions {
		if d != "" {
			l.dimensions = append(l.dimensions, d)
		}
	}
	return l
}

// Dimensions returns a copy of the dimensions.
func (l *Lookup) Dimensions() []string {
	out := make([]string, len(l.dimensions))
	copy(out, l.dimensions)
	return out
}

// BuildDocument implements Entity.
func (l *Lookup) BuildDocument(cfg *config.Config) (document.Document, error) {
	doc, err := l.baseDocument(cfg, "request.Lookup.BuildDocument", true)
	if err != nil {
		return nil, err
	}

	if len(l.dimensions) > 0 {
		doc[LookupKey] = document.Document{
			LookupDimensionsKey: l.Dimensions(),
		}
	}
	return doc, nil
}

// SignatureMessage implements Entity.
func (l *Lookup) SignatureMessage(doc document.Document) string {
	return signature.LookupMessage(doc)
}
