// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"net/http"

	"dietprogress/internal/app"
)

// maxBodyBytes caps request bodies; a full export of daily entries is far
// below this.
const maxBodyBytes = 1 << 20

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	progress *app.ProgressService
	stats    *app.StatsService
	gate     *app.PasswordGate
	webDir   string
}

// New creates a Server wired to the given application services.
func New(ps *app.ProgressService, ss *app.StatsService, gate *app.PasswordGate, webDir string) *Server {
	return &Server{progress: ps, stats: ss, gate: gate, webDir: webDir}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("POST /verify-password", s.handleVerifyPassword)

	api.HandleFunc("GET /progress", s.handleProgressList)
	api.HandleFunc("GET /progress/stats", s.handleProgressStats)
	api.Handle("POST /progress", s.requirePassword(http.HandlerFunc(s.handleProgressReplace)))
	api.Handle("POST /progress/add", s.requirePassword(http.HandlerFunc(s.handleProgressAdd)))
	api.Handle("DELETE /progress/{id}", s.requirePassword(http.HandlerFunc(s.handleProgressDelete)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("/", spaFromDisk(s.webDir))

	return withRequestID(s.loggingMiddleware(withCORS(withNoCache(root))))
}
