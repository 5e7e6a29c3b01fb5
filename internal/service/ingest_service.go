package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tazhate/sallebot/internal/domain"
)

const (
	// TimestampLayout is the only accepted DTSTART/DTEND form: UTC, no TZID.
	TimestampLayout = "20060102T150405Z"

	// DefaultLocationPrefix marks calendar entries that are room bookings.
	DefaultLocationPrefix = "DLST-"
)

// Source retrieves the decoded calendars behind the room feed.
type Source interface {
	FetchCalendars(ctx context.Context) ([]*ical.Calendar, error)
}

// SkipReason explains why an event did not become a booking
type SkipReason string

const (
	SkipMissingStart    SkipReason = "missing DTSTART"
	SkipMissingEnd      SkipReason = "missing DTEND"
	SkipMissingLocation SkipReason = "missing LOCATION"
	SkipBadTimestamp    SkipReason = "bad timestamp"
	SkipReversed        SkipReason = "ends before start"
	SkipNotRoom         SkipReason = "not a room booking"
	SkipMalformedRoom   SkipReason = "malformed room label"
)

// SkipStats counts skipped events per reason
type SkipStats map[SkipReason]int

func (s SkipStats) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

func (s SkipStats) String() string {
	if len(s) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(s))
	for reason, count := range s {
		parts = append(parts, fmt.Sprintf("%d %s", count, reason))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// IngestService turns a calendar feed into a room directory
type IngestService struct {
	source Source
	prefix string
	now    func() time.Time
}

// NewIngestService creates an ingester. An empty prefix means DefaultLocationPrefix.
func NewIngestService(source Source, prefix string) *IngestService {
	if prefix == "" {
		prefix = DefaultLocationPrefix
	}
	return &IngestService{
		source: source,
		prefix: prefix,
		now:    time.Now,
	}
}

// Ingest fetches the feed and builds a fresh directory. Only feed-level
// failures (domain.ErrFetch, domain.ErrFeedFormat) are returned; events that
// cannot be read are skipped and counted.
func (s *IngestService) Ingest(ctx context.Context) (*domain.Directory, SkipStats, error) {
	fetchedAt := s.now().UTC()

	cals, err := s.source.FetchCalendars(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(cals) == 0 {
		return nil, nil, fmt.Errorf("%w: no calendar in feed", domain.ErrFeedFormat)
	}

	dir, stats := BuildDirectory(cals, s.prefix, fetchedAt)

	log.Printf("[SUMMARY] Rooms: %d, Bookings: %d, Skipped: %d (%s)",
		dir.Len(), dir.BookingCount(), stats.Total(), stats)

	return dir, stats, nil
}

// BuildDirectory groups the room bookings of cals by room, in feed order.
func BuildDirectory(cals []*ical.Calendar, prefix string, fetchedAt time.Time) (*domain.Directory, SkipStats) {
	bookings := domain.NewGrouped[domain.RoomID, domain.Interval]()
	stats := SkipStats{}

	for _, cal := range cals {
		if cal == nil {
			continue
		}
		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}

			b, reason := parseBooking(comp, prefix)
			if reason != "" {
				stats[reason]++
				continue
			}
			bookings.Add(b.room, b.interval)
		}
	}

	return domain.NewDirectory(bookings, fetchedAt), stats
}

type booking struct {
	room     domain.RoomID
	interval domain.Interval
}

// parseBooking returns either a booking or the reason the event was skipped.
func parseBooking(comp *ical.Component, prefix string) (booking, SkipReason) {
	rawStart := propValue(comp, ical.PropDateTimeStart)
	if rawStart == "" {
		return booking{}, SkipMissingStart
	}
	rawEnd := propValue(comp, ical.PropDateTimeEnd)
	if rawEnd == "" {
		return booking{}, SkipMissingEnd
	}
	location := propValue(comp, ical.PropLocation)
	if location == "" {
		return booking{}, SkipMissingLocation
	}

	start, ok := parseTimestamp(rawStart)
	if !ok {
		return booking{}, SkipBadTimestamp
	}
	end, ok := parseTimestamp(rawEnd)
	if !ok {
		return booking{}, SkipBadTimestamp
	}

	if !strings.HasPrefix(location, prefix) {
		return booking{}, SkipNotRoom
	}

	room, err := domain.ParseRoomID(location)
	if err != nil {
		return booking{}, SkipMalformedRoom
	}

	interval, err := domain.NewInterval(start, end)
	if err != nil {
		return booking{}, SkipReversed
	}

	return booking{room: room, interval: interval}, ""
}

// parseTimestamp accepts TimestampLayout and nothing else. time.Parse alone
// lets fractional seconds through after the seconds field.
func parseTimestamp(raw string) (time.Time, bool) {
	if len(raw) != len(TimestampLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(TimestampLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func propValue(comp *ical.Component, name string) string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	return prop.Value
}
