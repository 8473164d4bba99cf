package request

import (
	"time"

	"brein.evalgo.org/config"
	"brein.evalgo.org/document"
	"brein.evalgo.org/signature"
)

// Keys of user.additional.location used by temporal data requests.
const (
	LocationTextKey       = "text"
	LocationCityKey       = "city"
	LocationStateKey      = "state"
	LocationCountryKey    = "country"
	LocationLatitudeKey   = "latitude"
	LocationLongitudeKey  = "longitude"
	LocationShapeTypesKey = "shapeTypes"
)

// LocalDateTimeLayout is the layout of the localDateTime value, e.g.
// "Sun Dec 25 2016 18:15:48 GMT-08:00 (PST)".
const LocalDateTimeLayout = "Mon Jan 02 2006 15:04:05 GMT-07:00 (MST)"

// TemporalData resolves time, location, weather and events for a place, a
// point in time or an IP address. Its values are written under
// user.additional of the built document; the user itself is left untouched.
type TemporalData struct {
	Base

	additional document.Document
	location   document.Document
}

// NewTemporalData creates a temporal data request. user may be nil.
func NewTemporalData(user *User) *TemporalData {
	t := &TemporalData{
		additional: document.New(),
		location:   document.New(),
	}
	t.SetUser(user)
	return t
}

// Kind implements Entity.
func (t *TemporalData) Kind() Kind { return KindTemporalData }

// Endpoint implements Entity.
func (t *TemporalData) Endpoint(cfg *config.Config) string { return cfg.Endpoint(KindTemporalData.String()) }

// SetTimezone sets the IANA timezone name, e.g. "America/New_York".
func (t *TemporalData) SetTimezone(timezone string) *TemporalData {
	t.additional.Set(AdditionalTimezone, nonEmpty(timezone))
	return t
}

// SetTimezoneFrom sets the timezone from loc.
func (t *TemporalData) SetTimezoneFrom(loc *time.Location) *TemporalData {
	if loc == nil {
		return t.SetTimezone("")
	}
	return t.SetTimezone(loc.String())
}

// SetLocalDateTime sets the local date time string.
func (t *TemporalData) SetLocalDateTime(localDateTime string) *TemporalData {
	t.additional.Set(AdditionalLocalDateTime, nonEmpty(localDateTime))
	return t
}

// SetLocalDateTimeAt formats at with LocalDateTimeLayout and sets it together
// with the timezone of at.
func (t *TemporalData) SetLocalDateTimeAt(at time.Time) *TemporalData {
	t.SetTimezoneFrom(at.Location())
	return t.SetLocalDateTime(at.Format(LocalDateTimeLayout))
}

// SetLookupIPAddress sets the IP address to resolve.
func (t *TemporalData) SetLookupIPAddress(ip string) *TemporalData {
	t.additional.Set(AdditionalIPAddress, nonEmpty(ip))
	return t
}

// SetLocation sets a free-text location, e.g. "San Francisco".
func (t *TemporalData) SetLocation(freeText string) *TemporalData {
	return t.SetLocationValue(LocationTextKey, nonEmpty(freeText))
}

// SetStructuredLocation sets city, state and country.
func (t *TemporalData) SetStructuredLocation(city, state, country string) *TemporalData {
	t.SetLocationValue(LocationCityKey, nonEmpty(city))
	t.SetLocationValue(LocationStateKey, nonEmpty(state))
	return t.SetLocationValue(LocationCountryKey, nonEmpty(country))
}

// SetCoordinates sets latitude and longitude.
func (t *TemporalData) SetCoordinates(latitude, longitude float64) *TemporalData {
	t.SetLocationValue(LocationLatitudeKey, latitude)
	return t.SetLocationValue(LocationLongitudeKey, longitude)
}

// SetShapeTypes sets the shape types returned with the response, e.g.
// "CITY" or "NEIGHBORHOOD". No arguments clears them.
func (t *TemporalData) SetShapeTypes(shapeTypes ...string) *TemporalData {
	if len(shapeTypes) == 0 {
		return t.SetLocationValue(LocationShapeTypesKey, nil)
	}
	list := make([]string, len(shapeTypes))
	copy(list, shapeTypes)
	return t.SetLocationValue(LocationShapeTypesKey, list)
}

// SetLocationValue sets a single entry of the location; nil removes it.
func (t *TemporalData) SetLocationValue(key string, value interface{}) *TemporalData {
	t.location.Set(key, value)
	return t
}

// Location returns a copy of the location entries.
func (t *TemporalData) Location() document.Document {
	return document.CopyDocument(t.location)
}

// BuildDocument implements Entity.
func (t *TemporalData) BuildDocument(cfg *config.Config) (document.Document, error) {
	doc, err := t.baseDocument(cfg, "request.TemporalData.BuildDocument", false)
	if err != nil {
		return nil, err
	}

	user, ok := doc.GetDocument(UserKey)
	if !ok {
		user = document.New()
	}
	additional, ok := user.GetDocument(AdditionalKey)
	if !ok {
		additional = document.New()
	}

	document.Merge(additional, t.additional)

	location, ok := additional.GetDocument(AdditionalLocation)
	if !ok {
		location = document.New()
	}
	document.Merge(location, t.location)
	if len(location) > 0 {
		additional[AdditionalLocation] = location
	}

	if len(additional) > 0 {
		user[AdditionalKey] = additional
	}
	if len(user) > 0 {
		doc[UserKey] = user
	}
	return doc, nil
}

// SignatureMessage implements Entity.
func (t *TemporalData) SignatureMessage(doc document.Document) string {
	return signature.TemporalDataMessage(doc)
}

// nonEmpty maps "" to nil so Set removes the key.
func nonEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
