// Package server is the HTTP boundary: it translates transport requests
// into review.Service calls and store errors into status codes. It holds no
// session state of its own.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reviewd/reviewd/internal/model"
	"github.com/reviewd/reviewd/internal/review"
)

const (
	pollInterval  = 250 * time.Millisecond
	writeDeadline = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // same-host web UI and CLI only
	},
}

type Server struct {
	svc       *review.Service
	staticDir string
	started   time.Time
}

func New(svc *review.Service, staticDir string) *Server {
	return &Server{
		svc:       svc,
		staticDir: staticDir,
		started:   time.Now().UTC(),
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/review/start", s.handleStart)
	mux.HandleFunc("GET /api/review/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /api/review/{id}/results", s.handleResults)
	mux.HandleFunc("GET /api/review/{id}/report", s.handleReport)
	mux.HandleFunc("GET /api/review/{id}/findings", s.handleFindings)
	mux.HandleFunc("GET /api/review/{id}/download", s.handleDownload)
	mux.HandleFunc("GET /api/review/{id}/progress", s.handleProgress)

	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}

	return mux
}

// handleProgress pushes status snapshots over a websocket until the session
// reaches a terminal state. It is the push alternative to polling
// /status and shares the same state machine.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.svc.Status(id); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	s.pushProgress(r.Context(), conn, id)
}

func (s *Server) pushProgress(ctx context.Context, conn *websocket.Conn, id string) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last model.Snapshot
	sent := false
	for {
		snap, err := s.svc.Status(id)
		if err != nil {
			return // evicted mid-watch
		}
		if !sent || snap != last {
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
			last, sent = snap, true
		}
		if snap.Status.Terminal() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeDeadline))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrEmptyBatch):
		return http.StatusBadRequest
	case errors.Is(err, review.ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
