package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Sergioohs/Trucopro/internal/service/lobby"
	"github.com/Sergioohs/Trucopro/internal/service/match"
	pkgAuth "github.com/Sergioohs/Trucopro/pkg/auth"
	appErr "github.com/Sergioohs/Trucopro/pkg/errors"
	"github.com/Sergioohs/Trucopro/pkg/logger"
	"github.com/Sergioohs/Trucopro/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	lobbySvc *lobby.Service
	queueSvc *match.Service
	limiter  *ratelimit.Limiter
}

func NewHandler(lobbySvc *lobby.Service, queueSvc *match.Service, limiter *ratelimit.Limiter) *Handler {
	return &Handler{lobbySvc: lobbySvc, queueSvc: queueSvc, limiter: limiter}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

func (h *Handler) HandleRoomWS(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("roomId"))
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	token, err := getTokenFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	claims, err := pkgAuth.ParseUserToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	userID := claims.SubjectID

	room, err := h.lobbySvc.Room(roomID)
	if err != nil {
		if errors.Is(err, appErr.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}
	if !room.Seated(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not seated in this room"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	outbound, err := room.Subscribe(userID)
	if err != nil {
		conn.Close()
		return
	}

	logger.Log.Info("New WebSocket connection",
		zap.String("roomID", roomID),
		zap.Int64("userID", userID),
	)

	client := newClient(conn, userID, room, outbound, h.queueSvc, h.limiter)
	client.run()
}

func getTokenFromRequest(c *gin.Context) (string, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token != "" {
		return token, nil
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
			if token != "" {
				return token, nil
			}
		}
	}
	return "", errors.New("missing token")
}

type client struct {
	conn      *websocket.Conn
	userID    int64
	room      *lobby.Room
	queueSvc  *match.Service
	limiter   *ratelimit.Limiter
	outbound  <-chan lobby.OutgoingMessage
	done      chan struct{}
	pingEvery time.Duration
}

func newClient(conn *websocket.Conn, userID int64, room *lobby.Room, outbound <-chan lobby.OutgoingMessage, queueSvc *match.Service, limiter *ratelimit.Limiter) *client {
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		room.Heartbeat(userID)
		return nil
	})
	return &client{
		conn:      conn,
		userID:    userID,
		room:      room,
		queueSvc:  queueSvc,
		limiter:   limiter,
		outbound:  outbound,
		done:      make(chan struct{}),
		pingEvery: 25 * time.Second,
	}
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.room.Unsubscribe(c.userID)
		if c.queueSvc != nil {
			c.queueSvc.Dequeue(c.userID)
		}
		c.conn.Close()
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.Int64("userID", c.userID), zap.String("roomID", c.room.ID()))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var incoming struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.safeWrite(lobby.OutgoingMessage{
				Type: "error",
				Seq:  0,
				Data: gin.H{"message": "invalid payload"},
			})
			continue
		}
		if incoming.Type == "" {
			continue
		}

		if c.isGameplay(incoming.Type) && !c.allowAction() {
			c.safeWrite(lobby.OutgoingMessage{
				Type: "error",
				Seq:  0,
				Data: gin.H{"message": appErr.ErrTooManyActions.Error()},
			})
			continue
		}

		if err := c.room.HandleAction(c.userID, incoming.Type, incoming.Data); err != nil {
			c.safeWrite(lobby.OutgoingMessage{
				Type: "error",
				Seq:  0,
				Data: gin.H{"message": fmt.Sprintf("action failed: %v", err)},
			})
		}
	}
}

func (c *client) isGameplay(action string) bool {
	return action == "play" || action == "truco" || action == "chat"
}

func (c *client) allowAction() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow(context.Background(), fmt.Sprintf("ws:%d", c.userID))
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.outbound:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.Int64("userID", c.userID), zap.String("roomID", c.room.ID()))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) safeWrite(msg lobby.OutgoingMessage) {
	if err := c.conn.WriteJSON(msg); err != nil {
		logger.Log.Info("WS write error", zap.Error(err), zap.Int64("userID", c.userID), zap.String("roomID", c.room.ID()))
	}
}
