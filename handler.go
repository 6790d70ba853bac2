package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"packetmesh/server/internal/logging"
)

// HTTPHandlerConfig wires the HTTP surface around a hub.
type HTTPHandlerConfig struct {
	ClientDir      string
	Logger         logging.Logger
	MetricsHandler http.Handler
}

// NewHTTPHandler builds the full route mux: viewer bootstrap, websocket
// sessions, health, diagnostics, optional Prometheus metrics, and static
// client assets.
func NewHTTPHandler(hub *Hub, cfg HTTPHandlerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Noop()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		payload := struct {
			Status     string              `json:"status"`
			ServerTime int64               `json:"serverTime"`
			TickRate   int                 `json:"tickRate"`
			Seed       string              `json:"seed"`
			Heartbeat  int64               `json:"heartbeatMillis"`
			Viewers    []diagnosticsViewer `json:"viewers"`
			Telemetry  telemetrySnapshot   `json:"telemetry"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			TickRate:   hub.TickRate(),
			Seed:       hub.Seed(),
			Heartbeat:  heartbeatInterval.Milliseconds(),
			Viewers:    hub.DiagnosticsSnapshot(),
			Telemetry:  hub.TelemetrySnapshot(),
		}
		writeJSON(w, payload)
	})

	mux.HandleFunc("/join", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, hub.Join())
	})

	wsHandler := newWSHandler(hub, logger)
	mux.HandleFunc("/ws", wsHandler.handle)

	if cfg.MetricsHandler != nil {
		mux.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ClientDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.ClientDir)))
	}

	return mux
}

func writeJSON(w http.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "failed to encode", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

type wsHandler struct {
	hub      *Hub
	logger   logging.Logger
	upgrader websocket.Upgrader
}

func newWSHandler(hub *Hub, logger logging.Logger) *wsHandler {
	return &wsHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *wsHandler) handle(w http.ResponseWriter, r *http.Request) {
	viewerID := r.URL.Query().Get("id")
	if viewerID == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed",
			logging.String("viewer", viewerID),
			logging.Any("error", err))
		return
	}

	sub, initial, ok := h.hub.Subscribe(viewerID, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown viewer")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	if initial != nil {
		if err := sub.writeMessage(websocket.TextMessage, initial); err != nil {
			h.hub.Disconnect(viewerID)
			return
		}
	}

	h.readLoop(viewerID, sub, conn)
}

func (h *wsHandler) readLoop(viewerID string, sub *subscriber, conn *websocket.Conn) {
	ctx := context.Background()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Disconnect(viewerID)
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Warn(ctx, "discarding malformed message",
				logging.String("viewer", viewerID),
				logging.Any("error", err))
			continue
		}

		switch msg.Type {
		case "transmit":
			h.hub.TransmitPacket(msg.NodeID, msg.Strategy)
		case "addNode":
			h.hub.AddNode(msg.NodeType)
		case "reset":
			h.hub.ResetNetwork()
		case "heartbeat":
			now := time.Now()
			rtt, ok := h.hub.UpdateHeartbeat(viewerID, now, msg.SentAt)
			if !ok {
				continue
			}
			ack := heartbeatMessage{
				Ver:        ProtocolVersion,
				Type:       "heartbeat",
				ServerTime: now.UnixMilli(),
				ClientTime: msg.SentAt,
				RTTMillis:  rtt.Milliseconds(),
			}
			data, err := json.Marshal(ack)
			if err != nil {
				continue
			}
			if err := sub.writeMessage(websocket.TextMessage, data); err != nil {
				h.hub.Disconnect(viewerID)
				return
			}
		default:
			h.logger.Warn(ctx, "unknown message type",
				logging.String("viewer", viewerID),
				logging.String("type", msg.Type))
		}
	}
}
