package admin

import (
	"net/http"
	"time"
)

// AppInfo is the unauthenticated build/runtime summary returned by
// GET /api/app_info, used by the web UI to show what it's talking to
// before a user has logged in.
type AppInfo struct {
	Version   string        `json:"version"`
	Uptime    time.Duration `json:"uptime_seconds"`
	StartedAt time.Time     `json:"started_at"`
}

func (s *Server) handleAppInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AppInfo{
		Version:   s.version,
		Uptime:    time.Since(s.startedAt) / time.Second,
		StartedAt: s.startedAt,
	})
}
