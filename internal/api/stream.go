package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/finapp/advisor-engine/internal/analytics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const watchPingInterval = 30 * time.Second

// handleWatchSession streams a session's lifecycle events over a websocket.
// The subscriber sees answers arriving and, on completion, the insight
// generation, which lets a companion UI update live while the user works
// through the questionnaire on another device.
func (s *Server) handleWatchSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return
	}

	session, err := s.engine.GetSession(r.Context(), sessionID)
	if err != nil {
		respondEngineError(w, err, "failed to load session")
		return
	}

	if s.events == nil {
		respondError(w, http.StatusServiceUnavailable, "streaming_disabled", "event streaming is not enabled")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("session watch connected", "session_id", sessionID)

	events, cancel := s.events.Subscribe(sessionID)
	defer cancel()

	// Snapshot first so the watcher starts from the session's current state.
	if err := writeWatchEvent(conn, analytics.Event{
		Type:      "snapshot",
		SessionID: session.ID,
		UserID:    session.UserID,
		AdvisorID: session.AdvisorID,
		Fields: map[string]string{
			"status": string(session.Status),
		},
		At: session.UpdatedAt,
	}); err != nil {
		return
	}

	// Drain client frames so close messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(watchPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			slog.Info("session watch disconnected", "session_id", sessionID)
			return
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := writeWatchEvent(conn, e); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeWatchEvent(conn *websocket.Conn, e analytics.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal watch event", "error", err)
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send watch event", "error", err)
		return err
	}
	return nil
}
