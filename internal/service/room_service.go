package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/tazhate/sallebot/internal/domain"
)

// RoomService answers availability questions against a directory snapshot
type RoomService struct {
	timezone *time.Location // Display only; all comparisons are in UTC
}

// NewRoomService creates a room service that renders times in tz
func NewRoomService(tz *time.Location) *RoomService {
	if tz == nil {
		tz = time.UTC
	}
	return &RoomService{timezone: tz}
}

// FreeRooms returns the rooms of dir with no booking containing at, in
// directory order. An empty directory yields no rooms: callers should check
// dir.Len() to tell "no room known" from "no room free".
func (s *RoomService) FreeRooms(dir *domain.Directory, at time.Time) []domain.RoomID {
	var free []domain.RoomID
	for _, room := range dir.Rooms() {
		if !dir.IsBusy(room, at) {
			free = append(free, room)
		}
	}
	return free
}

// AllRooms returns every room that has at least one booking
func (s *RoomService) AllRooms(dir *domain.Directory) []domain.RoomID {
	return dir.Rooms()
}

// GroupByBuilding groups rooms by building letter, keeping input order
func (s *RoomService) GroupByBuilding(rooms []domain.RoomID) *domain.Grouped[byte, domain.RoomID] {
	g := domain.NewGrouped[byte, domain.RoomID]()
	for _, room := range rooms {
		g.Add(room.Building(), room)
	}
	return g
}

// NextChange returns when the state of room changes after at: the end of
// the booking in progress if the room is busy, otherwise the start of the
// next booking. The zero time means the room stays free.
func (s *RoomService) NextChange(dir *domain.Directory, room domain.RoomID, at time.Time) time.Time {
	var next time.Time
	busy := false

	for _, iv := range dir.Bookings(room) {
		if iv.Contains(at) {
			if !busy || iv.End.After(next) {
				next = iv.End
			}
			busy = true
			continue
		}
		if busy || !iv.Start.After(at) {
			continue
		}
		if next.IsZero() || iv.Start.Before(next) {
			next = iv.Start
		}
	}

	return next
}

// FormatFreeRooms formats the free rooms at the given instant for display
func (s *RoomService) FormatFreeRooms(dir *domain.Directory, at time.Time) string {
	if dir.Len() == 0 {
		return "Aucune salle connue pour le moment."
	}

	free := s.FreeRooms(dir, at)
	if len(free) == 0 {
		return "Aucune salle libre en ce moment."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Salles libres</b> (%s):\n", s.formatClock(at)))

	groups := s.GroupByBuilding(free)
	for _, building := range groups.Keys() {
		var names []string
		for _, room := range groups.Get(building) {
			name := room.String()
			if until := s.NextChange(dir, room, at); !until.IsZero() {
				name += fmt.Sprintf(" (jusqu'à %s)", s.formatClock(until))
			}
			names = append(names, name)
		}
		sb.WriteString(fmt.Sprintf("\n<b>Bâtiment %c</b>: %s", building, strings.Join(names, ", ")))
	}

	return sb.String()
}

// FormatDirectory lists every known room grouped by building
func (s *RoomService) FormatDirectory(dir *domain.Directory) string {
	if dir.Len() == 0 {
		return "Aucune salle connue pour le moment."
	}

	var sb strings.Builder
	sb.WriteString("Voici ma base de données actuelle:\n")

	groups := s.GroupByBuilding(s.AllRooms(dir))
	for _, building := range groups.Keys() {
		var names []string
		for _, room := range groups.Get(building) {
			names = append(names, room.String())
		}
		sb.WriteString(fmt.Sprintf("\n<b>Bâtiment %c</b>\n%s\n", building, strings.Join(names, ", ")))
	}

	sb.WriteString(fmt.Sprintf("\n<i>Dernière mise à jour le %s</i>", s.formatDateTime(dir.FetchedAt())))
	return sb.String()
}

// FormatSyncRuns formats the sync history for display
func (s *RoomService) FormatSyncRuns(runs []*domain.SyncRun) string {
	if len(runs) == 0 {
		return "Aucune synchronisation enregistrée"
	}

	var sb strings.Builder
	for _, r := range runs {
		line := fmt.Sprintf("%s %s (%s)", r.StatusEmoji(), s.formatDateTime(r.StartedAt), r.Trigger)
		if r.Succeeded() {
			line += fmt.Sprintf(" — %d salles, %d réservations", r.Rooms, r.Bookings)
			if r.Skipped > 0 {
				line += fmt.Sprintf(", %d ignorées", r.Skipped)
			}
		} else {
			line += " — " + html.EscapeString(r.Error)
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func (s *RoomService) formatClock(t time.Time) string {
	return t.In(s.timezone).Format("15:04")
}

func (s *RoomService) formatDateTime(t time.Time) string {
	return t.In(s.timezone).Format("02/01/2006 à 15:04")
}
