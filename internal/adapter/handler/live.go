package handler

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meetscribe/capture-agent/errors"
	dto "github.com/meetscribe/capture-agent/internal/adapter/dto/session"
	"github.com/meetscribe/capture-agent/internal/domain/entities"
	"github.com/meetscribe/capture-agent/internal/infrastructure/ingest"
	"github.com/meetscribe/capture-agent/internal/usecase/session"
)

// client is one live-caption subscriber. Gorilla allows a single concurrent
// writer per connection, so writes go through the client mutex.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (cl *client) send(v interface{}) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.conn.WriteJSON(v)
}

// Hub fans live-caption events out to the websocket subscribers of a
// session. Slow or dead subscribers are dropped, never waited on.
type Hub struct {
	mu      sync.RWMutex
	logger  *zap.Logger
	clients map[uuid.UUID]map[*client]struct{}
}

// NewHub creates a caption hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[uuid.UUID]map[*client]struct{}),
	}
}

func (h *Hub) register(sessionID uuid.UUID, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[*client]struct{})
	}
	h.clients[sessionID][cl] = struct{}{}
}

func (h *Hub) unregister(sessionID uuid.UUID, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[sessionID], cl)
	if len(h.clients[sessionID]) == 0 {
		delete(h.clients, sessionID)
	}
}

// Broadcast pushes one caption event to every subscriber of the session.
func (h *Hub) Broadcast(sessionID uuid.UUID, ev dto.CaptionEvent) {
	h.mu.RLock()
	subscribers := make([]*client, 0, len(h.clients[sessionID]))
	for cl := range h.clients[sessionID] {
		subscribers = append(subscribers, cl)
	}
	h.mu.RUnlock()

	for _, cl := range subscribers {
		if err := cl.send(ev); err != nil {
			h.logger.Debug("caption subscriber dropped", zap.Error(err))
			h.unregister(sessionID, cl)
			cl.conn.Close()
		}
	}
}

// CaptionEventFor translates an ingestion event into a caption frame, nil
// for event kinds that carry no caption.
func CaptionEventFor(ev ingest.Event, s *entities.Session) *dto.CaptionEvent {
	if s == nil {
		return nil
	}
	switch ev.Kind {
	case ingest.EventPartialText:
		return &dto.CaptionEvent{
			Kind:            "partial",
			Text:            ev.Text,
			DurationSeconds: s.DurationSeconds,
		}
	case ingest.EventFinalText:
		return &dto.CaptionEvent{
			Kind:            "final",
			Text:            ev.Text,
			Transcript:      s.Transcript,
			DurationSeconds: s.DurationSeconds,
		}
	default:
		return nil
	}
}

// Live serves the websocket live-caption feed.
type Live struct {
	hub      *Hub
	manager  *session.Manager
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewLive creates the live-caption handler.
func NewLive(hub *Hub, manager *session.Manager, logger *zap.Logger) *Live {
	return &Live{
		hub:     hub,
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Captions upgrades to a websocket and streams caption events until the
// subscriber disconnects.
func (h *Live) Captions(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("session id must be a uuid"))
	}
	if _, err := h.manager.Get(sessionID); err != nil {
		return HandleError(h.logger, c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{conn: conn}
	h.hub.register(sessionID, cl)
	defer func() {
		h.hub.unregister(sessionID, cl)
		conn.Close()
	}()

	// Subscribers never send application data; the read loop only surfaces
	// the close handshake.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}
