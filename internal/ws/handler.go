// Package ws streams session changes to dashboards over WebSocket so a
// page can return to the login form as soon as its session is cleared.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/HerbHall/zabbixdash/internal/event"
	"github.com/HerbHall/zabbixdash/internal/session"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Subscriber is the part of the event bus the handler needs.
type Subscriber interface {
	Subscribe(topic string, handler event.Handler) (unsubscribe func())
}

// StateSource reports the current session. *session.Manager satisfies it.
type StateSource interface {
	State() session.State
}

// Handler serves GET /api/v1/events.
type Handler struct {
	hub            *Hub
	state          StateSource
	originPatterns []string
	logger         *zap.Logger
	unsubscribe    []func()
}

// NewHandler subscribes to session events on bus. originPatterns lists
// extra origins allowed to connect; same-origin requests always are.
func NewHandler(bus Subscriber, state StateSource, originPatterns []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		hub:            NewHub(logger),
		state:          state,
		originPatterns: originPatterns,
		logger:         logger,
	}
	h.unsubscribe = []func(){
		bus.Subscribe(session.TopicEstablished, h.forward(MessageSessionEstablished)),
		bus.Subscribe(session.TopicCleared, h.forward(MessageSessionCleared)),
	}
	return h
}

// RegisterRoutes registers the event stream route.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/events", h.handleEvents)
}

// Close stops forwarding bus events.
func (h *Handler) Close() {
	for _, off := range h.unsubscribe {
		off()
	}
}

// ClientCount returns the number of connected dashboards.
func (h *Handler) ClientCount() int {
	return h.hub.ClientCount()
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	// The stream outlives the server's read and write timeouts.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		id:     r.RemoteAddr,
		send:   make(chan Message, sendBuffer),
		logger: h.logger,
	}
	h.hub.Join(client, func() Message { return stateMessage(h.state.State()) })

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

func (h *Handler) forward(t MessageType) event.Handler {
	return func(_ context.Context, e event.Event) {
		change, ok := e.Payload.(session.Change)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      t,
			Timestamp: e.Timestamp,
			Data: SessionData{
				Authenticated: t == MessageSessionEstablished,
				ServerURL:     change.ServerURL,
				Username:      change.Username,
				Reason:        change.Reason,
			},
		})
	}
}

func stateMessage(st session.State) Message {
	return Message{
		Type:      MessageSessionState,
		Timestamp: time.Now(),
		Data: SessionData{
			Authenticated: st.Authenticated(),
			ServerURL:     st.ServerURL,
			Username:      st.Username,
		},
	}
}
