package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhate/sallebot/internal/clients/icsfeed"
	"github.com/tazhate/sallebot/internal/domain"
	"github.com/tazhate/sallebot/internal/service"
)

type staticSource struct {
	body string
	err  error
}

func (s *staticSource) FetchCalendars(ctx context.Context) ([]*ical.Calendar, error) {
	if s.err != nil {
		return nil, s.err
	}
	return icsfeed.Decode([]byte(s.body))
}

func decode(t *testing.T, body string) []*ical.Calendar {
	t.Helper()
	cals, err := icsfeed.Decode([]byte(body))
	require.NoError(t, err)
	return cals
}

func TestBuildDirectorySingleBooking(t *testing.T) {
	cals := decode(t, buildFeed(testEvent{
		start:    "20240101T090000Z",
		end:      "20240101T100000Z",
		location: "DLST-A101-extra",
	}))

	dir, stats := service.BuildDirectory(cals, service.DefaultLocationPrefix, time.Time{})

	require.Equal(t, []domain.RoomID{"A101"}, dir.Rooms())
	bookings := dir.Bookings("A101")
	require.Len(t, bookings, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), bookings[0].Start)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), bookings[0].End)
	assert.Zero(t, stats.Total())
}

func TestBuildDirectoryDropsUnrelatedLocation(t *testing.T) {
	cals := decode(t, buildFeed(testEvent{
		start:    "20240101T090000Z",
		end:      "20240101T100000Z",
		location: "Cafeteria",
	}))

	dir, stats := service.BuildDirectory(cals, service.DefaultLocationPrefix, time.Time{})

	assert.Zero(t, dir.Len())
	assert.Equal(t, 1, stats[service.SkipNotRoom])
}

func TestBuildDirectorySkipsMalformedEvents(t *testing.T) {
	good := []testEvent{
		{start: "20240101T090000Z", end: "20240101T100000Z", location: "DLST-A101"},
		{start: "20240101T110000Z", end: "20240101T120000Z", location: "DLST-B204 amphi"},
		{start: "20240101T130000Z", end: "20240101T140000Z", location: "DLST-A101"},
		{start: "20240101T080000Z", end: "20240101T083000Z", location: "DLST-F2"},
	}
	bad := []testEvent{
		{end: "20240101T100000Z", location: "DLST-A101"},
		{start: "20240101T090000Z", location: "DLST-A101"},
		{start: "20240101T090000Z", end: "20240101T100000Z"},
		{start: "20240101T090000", end: "20240101T100000Z", location: "DLST-A101"},
		{start: "2024-01-01T09:00:00Z", end: "20240101T100000Z", location: "DLST-A101"},
		{start: "20240101T090000.5Z", end: "20240101T100000Z", location: "DLST-A101"},
		{start: "20240101T090000Z", end: "20240101T100000,123Z", location: "DLST-A101"},
		{start: "20240101T240000Z", end: "20240101T100000Z", location: "DLST-A101"},
		{start: "20240101T090000Z", end: "20240101T100000Z", location: "Réunion équipe"},
		{start: "20240101T090000Z", end: "20240101T100000Z", location: "DLST-hall"},
		{start: "20240101T100000Z", end: "20240101T090000Z", location: "DLST-C310"},
	}

	events := append(append([]testEvent{}, good[:2]...), bad...)
	events = append(events, good[2:]...)
	cals := decode(t, buildFeed(events...))

	dir, stats := service.BuildDirectory(cals, service.DefaultLocationPrefix, time.Time{})

	assert.Equal(t, len(good), dir.BookingCount())
	assert.Equal(t, len(bad), stats.Total())
	assert.Equal(t, []domain.RoomID{"A101", "B204", "F2"}, dir.Rooms())
	assert.Equal(t, 1, stats[service.SkipMissingStart])
	assert.Equal(t, 1, stats[service.SkipMissingEnd])
	assert.Equal(t, 1, stats[service.SkipMissingLocation])
	assert.Equal(t, 5, stats[service.SkipBadTimestamp])
	assert.Equal(t, 1, stats[service.SkipNotRoom])
	assert.Equal(t, 1, stats[service.SkipMalformedRoom])
	assert.Equal(t, 1, stats[service.SkipReversed])

	// feed order is kept within a room
	a101 := dir.Bookings("A101")
	require.Len(t, a101, 2)
	assert.Equal(t, 9, a101[0].Start.Hour())
	assert.Equal(t, 13, a101[1].Start.Hour())
}

func TestBuildDirectoryCustomPrefix(t *testing.T) {
	cals := decode(t, buildFeed(
		testEvent{start: "20240101T090000Z", end: "20240101T100000Z", location: "SALLE A101"},
		testEvent{start: "20240101T090000Z", end: "20240101T100000Z", location: "DLST-B204"},
	))

	dir, _ := service.BuildDirectory(cals, "SALLE ", time.Time{})

	assert.Equal(t, []domain.RoomID{"A101"}, dir.Rooms())
}

func TestIngestIsRepeatable(t *testing.T) {
	body := buildFeed(
		testEvent{start: "20240101T090000Z", end: "20240101T100000Z", location: "DLST-A101"},
		testEvent{start: "20240101T100000Z", end: "20240101T110000Z", location: "DLST-B204"},
		testEvent{start: "20240101T110000Z", end: "20240101T120000Z", location: "DLST-A101"},
	)
	ingester := service.NewIngestService(&staticSource{body: body}, "")

	first, _, err := ingester.Ingest(context.Background())
	require.NoError(t, err)
	second, _, err := ingester.Ingest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Rooms(), second.Rooms())
	for _, room := range first.Rooms() {
		assert.ElementsMatch(t, first.Bookings(room), second.Bookings(room))
	}
}

func TestIngestPropagatesFeedErrors(t *testing.T) {
	fetchErr := errors.Join(domain.ErrFetch, errors.New("connection refused"))

	_, _, err := service.NewIngestService(&staticSource{err: fetchErr}, "").Ingest(context.Background())
	assert.ErrorIs(t, err, domain.ErrFetch)

	_, _, err = service.NewIngestService(&staticSource{body: "not a calendar"}, "").Ingest(context.Background())
	assert.ErrorIs(t, err, domain.ErrFeedFormat)
}

func TestIngestEmptyCalendarIsValid(t *testing.T) {
	dir, _, err := service.NewIngestService(&staticSource{body: buildFeed()}, "").Ingest(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dir.Len())
}

func TestSkipStatsString(t *testing.T) {
	assert.Equal(t, "none", service.SkipStats{}.String())
	stats := service.SkipStats{service.SkipNotRoom: 2, service.SkipBadTimestamp: 1}
	assert.Equal(t, "1 bad timestamp, 2 not a room booking", stats.String())
	assert.Equal(t, 3, stats.Total())
}
