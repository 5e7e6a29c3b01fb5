package domain

import "errors"

var (
	// ErrMalformedRoomLabel is returned when a location holds no room code.
	ErrMalformedRoomLabel = errors.New("malformed room label")

	// ErrFetch wraps transport failures while retrieving the calendar feed.
	ErrFetch = errors.New("fetch calendar feed")

	// ErrFeedFormat is returned when the feed is not an iCalendar document
	// or holds no calendar block.
	ErrFeedFormat = errors.New("invalid calendar feed")
)
