package bot

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/tazhate/sallebot/internal/domain"
)

// API Response types
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type BookingResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type RoomResponse struct {
	ID       string            `json:"id"`
	Building string            `json:"building"`
	Bookings []BookingResponse `json:"bookings"`
}

type FreeRoomResponse struct {
	ID        string  `json:"id"`
	Building  string  `json:"building"`
	FreeUntil *string `json:"free_until,omitempty"`
}

type SyncRunResponse struct {
	ID         string `json:"id"`
	Trigger    string `json:"trigger"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	Rooms      int    `json:"rooms"`
	Bookings   int    `json:"bookings"`
	Skipped    int    `json:"skipped"`
	Error      string `json:"error,omitempty"`
}

// SetupAPI registers API routes with Basic Auth
func (b *Bot) SetupAPI(mux *http.ServeMux) {
	if !b.cfg.APIEnabled() {
		return // API disabled if no credentials
	}

	mux.HandleFunc("/api/rooms", b.basicAuth(b.apiRooms))
	mux.HandleFunc("/api/rooms/free", b.basicAuth(b.apiFreeRooms))
	mux.HandleFunc("/api/sync", b.basicAuth(b.apiSync))
	mux.HandleFunc("/api/sync/history", b.basicAuth(b.apiSyncHistory))
}

// basicAuth middleware
func (b *Bot) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || username != b.cfg.APIUsername || password != b.cfg.APIPassword {
			w.Header().Set("WWW-Authenticate", `Basic realm="SalleBot API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (b *Bot) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func (b *Bot) jsonError(w http.ResponseWriter, err string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: err})
}

// GET /api/rooms - every known room with its bookings
func (b *Bot) apiRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dir := b.syncService.Current()
	rooms := make([]RoomResponse, 0, dir.Len())
	for _, room := range b.roomService.AllRooms(dir) {
		bookings := dir.Bookings(room)
		resp := RoomResponse{
			ID:       room.String(),
			Building: string(room.Building()),
			Bookings: make([]BookingResponse, 0, len(bookings)),
		}
		for _, iv := range bookings {
			resp.Bookings = append(resp.Bookings, BookingResponse{
				Start: iv.Start.Format(time.RFC3339),
				End:   iv.End.Format(time.RFC3339),
			})
		}
		rooms = append(rooms, resp)
	}

	b.jsonResponse(w, map[string]interface{}{
		"fetched_at": dir.FetchedAt().Format(time.RFC3339),
		"rooms":      rooms,
	})
}

// GET /api/rooms/free?at=RFC3339 - rooms free at the given instant, now by default
func (b *Bot) apiFreeRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	at := b.now().UTC()
	if raw := r.URL.Query().Get("at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			b.jsonError(w, "Invalid at, expected RFC3339", http.StatusBadRequest)
			return
		}
		at = t.UTC()
	}

	dir := b.syncService.Current()
	rooms := make([]FreeRoomResponse, 0)
	for _, room := range b.roomService.FreeRooms(dir, at) {
		resp := FreeRoomResponse{ID: room.String(), Building: string(room.Building())}
		if next := b.roomService.NextChange(dir, room, at); !next.IsZero() {
			s := next.Format(time.RFC3339)
			resp.FreeUntil = &s
		}
		rooms = append(rooms, resp)
	}

	b.jsonResponse(w, map[string]interface{}{
		"at":    at.Format(time.RFC3339),
		"known": dir.Len(),
		"rooms": rooms,
	})
}

// POST /api/sync - reload the calendar feed now
func (b *Bot) apiSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	run, err := b.syncService.Resync(r.Context(), domain.TriggerAPI)
	if err != nil {
		b.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	b.jsonResponse(w, syncRunToResponse(run))
}

// GET /api/sync/history?limit=N - latest sync attempts, newest first
func (b *Bot) apiSyncHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if b.storage == nil {
		b.jsonError(w, "Sync journal not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			b.jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := b.storage.ListSyncRuns(limit)
	if err != nil {
		b.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]SyncRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, syncRunToResponse(run))
	}
	b.jsonResponse(w, resp)
}

func syncRunToResponse(run *domain.SyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:         run.ID,
		Trigger:    string(run.Trigger),
		StartedAt:  run.StartedAt.Format(time.RFC3339),
		FinishedAt: run.FinishedAt.Format(time.RFC3339),
		Rooms:      run.Rooms,
		Bookings:   run.Bookings,
		Skipped:    run.Skipped,
		Error:      run.Error,
	}
}
