package result

import (
	"strings"
	"time"

	"brein.evalgo.org/document"
)

// Keys of a temporal data response.
const (
	WeatherKey       = "weather"
	TimeKey          = "time"
	TimezoneKey      = "timezone"
	LocalTimeKey     = "localFormatIso8601"
	EpochTimeKey     = "epochFormatIso8601"
	LocationKey      = "location"
	HolidayListKey   = "holidays"
	EventListKey     = "events"
	eventCategoryTag = "eventCategory"
)

// EventCategory classifies an event near the resolved location.
type EventCategory string

const (
	EventConcert     EventCategory = "CONCERT"
	EventComedy      EventCategory = "COMEDY"
	EventOtherShow   EventCategory = "OTHERSHOW"
	EventPolitical   EventCategory = "POLITICAL"
	EventSports      EventCategory = "SPORTS"
	EventEducational EventCategory = "EDUCATIONAL"
	EventFitness     EventCategory = "FITNESS"
	EventUnknown     EventCategory = "UNKNOWN"
)

var eventCategories = []EventCategory{
	EventConcert, EventComedy, EventOtherShow, EventPolitical,
	EventSports, EventEducational, EventFitness,
}

// ParseEventCategory maps the wire value, e.g. "eventCategoryConcert", to
// its category. Unknown values map to EventUnknown.
func ParseEventCategory(value string) EventCategory {
	name := strings.ToUpper(strings.ReplaceAll(value, eventCategoryTag, ""))
	for _, c := range eventCategories {
		if string(c) == name {
			return c
		}
	}
	return EventUnknown
}

// Event is an entry of the events list.
type Event struct {
	Name     string
	Start    int64 // unix seconds, 0 if unknown
	End      int64 // unix seconds, 0 if unknown
	Category EventCategory

	// Size is the estimated attendance; SizeKnown is false when the
	// service sent none or -1.
	Size      int64
	SizeKnown bool
}

// TemporalData gives typed access to a temporal data response.
type TemporalData struct {
	*Result
}

// NewTemporalData wraps r.
func NewTemporalData(r *Result) *TemporalData {
	if r == nil {
		r = New(nil, 0)
	}
	return &TemporalData{Result: r}
}

func (t *TemporalData) HasWeather() bool {
	return t.Get(WeatherKey) != nil
}

// Weather returns the weather subtree.
func (t *TemporalData) Weather() document.Document {
	doc, _ := t.doc.GetDocument(WeatherKey)
	return document.CopyDocument(doc)
}

func (t *TemporalData) HasLocalDateTime() bool {
	v, _ := t.GetNested(TimeKey, LocalTimeKey)
	return v != nil
}

// LocalDateTime parses time.localFormatIso8601 and moves it into
// time.timezone when that names a known zone.
func (t *TemporalData) LocalDateTime() (time.Time, bool) {
	value := t.doc.GetString(TimeKey, LocalTimeKey)
	if value == "" {
		return time.Time{}, false
	}
	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}

	if tz := t.doc.GetString(TimeKey, TimezoneKey); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			at = at.In(loc)
		}
	}
	return at, true
}

func (t *TemporalData) HasEpochDateTime() bool {
	v, _ := t.GetNested(TimeKey, EpochTimeKey)
	return v != nil
}

// EpochDateTime parses time.epochFormatIso8601.
func (t *TemporalData) EpochDateTime() (time.Time, bool) {
	value := t.doc.GetString(TimeKey, EpochTimeKey)
	if value == "" {
		return time.Time{}, false
	}
	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

func (t *TemporalData) HasLocation() bool {
	return t.Get(LocationKey) != nil
}

// Location returns the resolved location subtree.
func (t *TemporalData) Location() document.Document {
	doc, _ := t.doc.GetDocument(LocationKey)
	return document.CopyDocument(doc)
}

func (t *TemporalData) HasHolidays() bool {
	return t.Get(HolidayListKey) != nil
}

// Holidays returns the holiday entries.
func (t *TemporalData) Holidays() []document.Document {
	return t.documents(HolidayListKey)
}

func (t *TemporalData) HasEvents() bool {
	return t.Get(EventListKey) != nil
}

// Events returns the events near the resolved location.
func (t *TemporalData) Events() []Event {
	docs := t.documents(EventListKey)
	if docs == nil {
		return nil
	}

	events := make([]Event, 0, len(docs))
	for _, doc := range docs {
		category := doc.GetString("category")
		if category == "" {
			category = "unknown"
		}

		event := Event{
			Name:     doc.GetString("displayName"),
			Category: ParseEventCategory(category),
		}
		event.Start, _ = doc.GetInt64("startTime")
		event.End, _ = doc.GetInt64("endTime")
		if size, ok := doc.GetInt64("sizeEstimated"); ok && size != -1 {
			event.Size = size
			event.SizeKnown = true
		}
		events = append(events, event)
	}
	return events
}

func (t *TemporalData) documents(key string) []document.Document {
	list, ok := t.Get(key).([]interface{})
	if !ok {
		return nil
	}

	docs := make([]document.Document, 0, len(list))
	for _, item := range list {
		switch m := item.(type) {
		case document.Document:
			docs = append(docs, document.CopyDocument(m))
		case map[string]interface{}:
			docs = append(docs, document.CopyDocument(m))
		}
	}
	return docs
}
