package domain

import "time"

type SyncTrigger string

const (
	TriggerStartup  SyncTrigger = "startup"
	TriggerSchedule SyncTrigger = "schedule"
	TriggerManual   SyncTrigger = "manual"
	TriggerAPI      SyncTrigger = "api"
)

// SyncRun records one attempt to refresh the room directory.
type SyncRun struct {
	ID         string
	Trigger    SyncTrigger
	StartedAt  time.Time
	FinishedAt time.Time
	Rooms      int
	Bookings   int
	Skipped    int
	Error      string
}

func (r *SyncRun) Succeeded() bool {
	return r.Error == ""
}

// Duration returns how long the attempt took
func (r *SyncRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// FormatStarted returns formatted start date and time
func (r *SyncRun) FormatStarted() string {
	return r.StartedAt.Format("02/01/2006 15:04")
}

// StatusEmoji returns the emoji shown next to the run
func (r *SyncRun) StatusEmoji() string {
	if r.Succeeded() {
		return "✅"
	}
	return "❌"
}
