package domain

import (
	"fmt"
	"regexp"
)

// roomPattern matches a building letter followed by three digits, or the
// F<digit> shorthand used for the small rooms of building F.
var roomPattern = regexp.MustCompile(`[A-F]\d{3}|F\d`)

// RoomID is a canonical room code such as "A101" or "F2".
type RoomID string

// ParseRoomID extracts the first room code found in a free-text location.
func ParseRoomID(raw string) (RoomID, error) {
	code := roomPattern.FindString(raw)
	if code == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedRoomLabel, raw)
	}
	return RoomID(code), nil
}

// Building returns the building letter the room belongs to.
func (r RoomID) Building() byte {
	return r[0]
}

func (r RoomID) String() string {
	return string(r)
}
