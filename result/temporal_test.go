package result

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const temporalBody = `{
  "weather": {"description": "clear sky", "temperatureCelsius": 12.5},
  "time": {
    "localFormatIso8601": "2017-05-01T18:30:00Z",
    "epochFormatIso8601": "2017-05-01T18:30:00Z",
    "timezone": "America/New_York"
  },
  "location": {"city": "New York", "state": "NY", "country": "US"},
  "holidays": [{"holiday": "May Day"}],
  "events": [
    {"displayName": "Concert in the park", "startTime": 1493663400, "endTime": 1493670600, "category": "eventCategoryConcert", "sizeEstimated": 500},
    {"displayName": "Mystery", "category": "eventCategoryMagic", "sizeEstimated": -1},
    {"displayName": "No category"}
  ]
}`

func TestTemporalDataResult(t *testing.T) {
	r, err := Parse([]byte(temporalBody), 200, "200 OK")
	require.NoError(t, err)
	temporal := NewTemporalData(r)

	assert.True(t, temporal.HasWeather())
	assert.Equal(t, "clear sky", temporal.Weather().GetString("description"))

	assert.True(t, temporal.HasLocation())
	assert.Equal(t, "New York", temporal.Location().GetString("city"))

	assert.True(t, temporal.HasHolidays())
	require.Len(t, temporal.Holidays(), 1)
	assert.Equal(t, "May Day", temporal.Holidays()[0].GetString("holiday"))

	assert.True(t, temporal.HasLocalDateTime())
	local, ok := temporal.LocalDateTime()
	require.True(t, ok)
	assert.Equal(t, "America/New_York", local.Location().String())
	assert.True(t, local.Equal(time.Date(2017, 5, 1, 18, 30, 0, 0, time.UTC)))
	assert.Equal(t, 14, local.Hour())

	assert.True(t, temporal.HasEpochDateTime())
	epoch, ok := temporal.EpochDateTime()
	require.True(t, ok)
	assert.Equal(t, int64(1493663400), epoch.Unix())
}

func TestTemporalDataEvents(t *testing.T) {
	r, err := Parse([]byte(temporalBody), 200, "200 OK")
	require.NoError(t, err)

	events := NewTemporalData(r).Events()
	require.Len(t, events, 3)

	assert.Equal(t, Event{
		Name:      "Concert in the park",
		Start:     1493663400,
		End:       1493670600,
		Category:  EventConcert,
		Size:      500,
		SizeKnown: true,
	}, events[0])

	assert.Equal(t, EventUnknown, events[1].Category)
	assert.False(t, events[1].SizeKnown)
	assert.Equal(t, EventUnknown, events[2].Category)
}

func TestTemporalDataEmpty(t *testing.T) {
	temporal := NewTemporalData(nil)

	assert.False(t, temporal.HasWeather())
	assert.False(t, temporal.HasEvents())
	assert.Nil(t, temporal.Events())
	assert.Nil(t, temporal.Holidays())
	assert.Nil(t, temporal.Weather())

	_, ok := temporal.LocalDateTime()
	assert.False(t, ok)
	_, ok = temporal.EpochDateTime()
	assert.False(t, ok)
}

func TestParseEventCategory(t *testing.T) {
	tests := map[string]EventCategory{
		"eventCategoryConcert":     EventConcert,
		"eventCategoryComedy":      EventComedy,
		"eventCategoryOtherShow":   EventOtherShow,
		"eventCategoryPolitical":   EventPolitical,
		"eventCategorySports":      EventSports,
		"eventCategoryEducational": EventEducational,
		"eventCategoryFitness":     EventFitness,
		"sports":                   EventSports,
		"unknown":                  EventUnknown,
		"":                         EventUnknown,
	}
	for input, expected := range tests {
		assert.Equal(t, expected, ParseEventCategory(input), input)
	}
}
