package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/BioHazard786/roomrelay/internal/config"
	"github.com/BioHazard786/roomrelay/internal/signaling"
)

// newUpgrader builds the websocket upgrader, checking Origin against the
// configured allow list.
func newUpgrader(cfg *config.Config) websocket.Upgrader {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}
	anyOrigin := cfg.AllowsAnyOrigin()

	return websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 4 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			if anyOrigin {
				return true
			}
			origin := r.Header.Get("Origin")
			// Non-browser clients send no Origin.
			return origin == "" || allowed[origin]
		},
	}
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
// Each connection becomes a participant with a fresh random id.
func ServeWs(hub *signaling.Hub, cfg *config.Config, log *slog.Logger) http.HandlerFunc {
	upgrader := newUpgrader(cfg)
	opts := signaling.ClientOptions{
		SendBuffer:        cfg.SendBuffer,
		MaxMessageSize:    cfg.MaxMessageBytes,
		MessagesPerSecond: cfg.MaxMessagesPerSecond,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("failed to upgrade connection", "remote", r.RemoteAddr, "error", err)
			return
		}

		id := signaling.ParticipantID(uuid.NewString())
		client := signaling.NewClient(id, hub, conn, opts, log)

		if err := hub.Register(client); err != nil {
			log.Warn("rejecting connection", "remote", r.RemoteAddr, "error", err)
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			conn.Close()
			return
		}
		log.Debug("connection upgraded", "remote", r.RemoteAddr, "participant", id)

		go client.WritePump()
		go client.ReadPump()
	}
}

// healthCheckHandler reports liveness.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling relay is healthy."))
}

// roomsHandler lists the rooms currently held by the hub.
func roomsHandler(hub *signaling.Hub, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rooms, err := hub.Snapshot(r.Context())
		if err != nil {
			log.Warn("room snapshot failed", "error", err)
			http.Error(w, "Rooms unavailable", http.StatusServiceUnavailable)
			return
		}
		if rooms == nil {
			rooms = []signaling.RoomInfo{}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(rooms); err != nil {
			log.Debug("writing rooms response", "error", err)
		}
	}
}
