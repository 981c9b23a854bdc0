package api

import (
	"net/http"
	"time"

	"airdrop_backend/internal/model"
	"airdrop_backend/internal/service"
	"airdrop_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type messageRoutes struct {
	hub *service.MessageHub
}

// NewMessageRoutes registers the live pending-message feed.
func NewMessageRoutes(handler gin.IRoutes, hub *service.MessageHub) {
	r := &messageRoutes{hub: hub}
	handler.GET("/ws", r.handleWebSocket)
}

func (r *messageRoutes) handleWebSocket(c *gin.Context) {
	log := logger.Logger()

	var req userKey
	if err := c.ShouldBindQuery(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.String(http.StatusBadRequest, msgServerError)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	filter := model.UserFilter{ContractAddress: req.ContractAddress, SocialUsername: req.TwittUsername}
	messages, unsubscribe := r.hub.Subscribe(filter)

	log.Info("message feed opened",
		zap.String("username", req.TwittUsername),
		zap.String("contract_address", req.ContractAddress))

	go r.readLoop(conn, unsubscribe)
	r.writeLoop(conn, messages)
}

// readLoop drains control frames and unsubscribes once the peer goes away.
func (r *messageRoutes) readLoop(conn *websocket.Conn, unsubscribe func()) {
	defer unsubscribe()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (r *messageRoutes) writeLoop(conn *websocket.Conn, messages <-chan model.Message) {
	log := logger.Logger()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-messages:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			out := messageResponse{Text: msg.Text, Hashtags: msg.Hashtags, CreatedAt: msg.CreatedAt}
			if err := conn.WriteJSON(out); err != nil {
				log.Warn("error sending message", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
