package domain

import "time"

// Directory is an immutable snapshot of the bookings of every known room.
// Rooms without bookings are absent.
type Directory struct {
	bookings  *Grouped[RoomID, Interval]
	fetchedAt time.Time
}

// NewDirectory takes ownership of bookings; the caller must not add to it afterwards.
func NewDirectory(bookings *Grouped[RoomID, Interval], fetchedAt time.Time) *Directory {
	if bookings == nil {
		bookings = NewGrouped[RoomID, Interval]()
	}
	return &Directory{bookings: bookings, fetchedAt: fetchedAt}
}

// Rooms returns every room in the order it first appeared in the feed.
func (d *Directory) Rooms() []RoomID {
	return d.bookings.Keys()
}

// Bookings returns the intervals of room in feed order.
func (d *Directory) Bookings(room RoomID) []Interval {
	return d.bookings.Get(room)
}

// IsBusy reports whether room has a booking containing t.
func (d *Directory) IsBusy(room RoomID, t time.Time) bool {
	for _, iv := range d.bookings.lists[room] {
		if iv.Contains(t) {
			return true
		}
	}
	return false
}

func (d *Directory) Len() int {
	return d.bookings.Len()
}

// BookingCount returns the total number of intervals across all rooms.
func (d *Directory) BookingCount() int {
	n := 0
	for _, list := range d.bookings.lists {
		n += len(list)
	}
	return n
}

// FetchedAt is when the feed behind this snapshot was retrieved.
func (d *Directory) FetchedAt() time.Time {
	return d.fetchedAt
}
