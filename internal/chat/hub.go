// Package chat fans websocket frames out to the members of a two-party room.
package chat

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/metrics"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
	maxFrame   = 8 * 1024
)

// Hub tracks open sessions per room.
type Hub struct {
	chat     *services.ChatService
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[uint]map[*session]struct{}
}

func NewHub(chat *services.ChatService, checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		rooms: make(map[uint]map[*session]struct{}),
	}
}

type session struct {
	id     string
	roomID uint
	user   *models.User
	conn   *websocket.Conn
	send   chan models.ChatFrame
}

// Serve checks that user belongs to the active room, upgrades the request
// and blocks until the socket closes. Errors before the upgrade are returned
// so the caller can render them.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, user *models.User, roomID uint) error {
	room, err := h.chat.Room(r.Context(), user.ID, roomID)
	if err != nil {
		return err
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Uint("room_id", roomID), zap.Error(err))
		return nil
	}

	s := &session{
		id:     uuid.NewString(),
		roomID: room.ID,
		user:   user,
		conn:   conn,
		send:   make(chan models.ChatFrame, sendBuffer),
	}
	h.join(s)
	metrics.ChatConnections.Inc()
	zap.L().Info("chat session opened",
		zap.String("session_id", s.id),
		zap.Uint("room_id", room.ID),
		zap.Uint("user_id", user.ID),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeLoop()
	}()
	h.readLoop(context.WithoutCancel(r.Context()), room, s)

	h.leave(s)
	<-done
	metrics.ChatConnections.Dec()
	zap.L().Info("chat session closed", zap.String("session_id", s.id))
	return nil
}

func (h *Hub) readLoop(ctx context.Context, room *models.ChatRoom, s *session) {
	s.conn.SetReadLimit(maxFrame)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var in models.ChatFrame
		if err := s.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Info("chat client disconnected", zap.String("session_id", s.id), zap.Error(err))
			}
			return
		}
		msg, err := h.chat.Post(ctx, room, s.user, in.Message)
		if errors.Is(err, apperrors.E(apperrors.EmptyContent)) {
			continue
		}
		if err != nil {
			zap.L().Error("failed to store chat message", zap.Uint("room_id", room.ID), zap.Error(err))
			continue
		}
		h.Broadcast(room.ID, models.ChatFrame{
			UserID:    msg.UserID,
			UserName:  msg.UserName,
			Message:   msg.Message,
			Timestamp: msg.Timestamp,
		})
	}
}

func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(frame); err != nil {
				zap.L().Warn("failed to write chat frame", zap.String("session_id", s.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) join(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[s.roomID]
	if !ok {
		members = make(map[*session]struct{})
		h.rooms[s.roomID] = members
	}
	members[s] = struct{}{}
}

func (h *Hub) leave(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[s.roomID]; ok {
		if _, ok := members[s]; ok {
			delete(members, s)
			close(s.send)
		}
		if len(members) == 0 {
			delete(h.rooms, s.roomID)
		}
	}
}

// Broadcast queues frame for every session in the room. A session whose
// buffer is full is dropped.
func (h *Hub) Broadcast(roomID uint, frame models.ChatFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.rooms[roomID] {
		select {
		case s.send <- frame:
		default:
			zap.L().Warn("dropping slow chat session", zap.String("session_id", s.id))
			delete(h.rooms[roomID], s)
			close(s.send)
		}
	}
}

// CloseRoom disconnects every session of roomID.
func (h *Hub) CloseRoom(roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.rooms[roomID] {
		close(s.send)
	}
	delete(h.rooms, roomID)
}

// Sessions counts open sessions in roomID.
func (h *Hub) Sessions(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
