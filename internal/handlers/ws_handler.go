package handlers

import (
	"net/http"
	"time"

	"game-server-tracker/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// WebSocketHandler pushes server ping and leaderboard events to connected
// clients. Events arrive through the cache layer's pub/sub channel.
type WebSocketHandler struct {
	upgrader   websocket.Upgrader
	cache      *cache.Manager
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

func NewWebSocketHandler(cacheMgr *cache.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		cache:      cacheMgr,
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (h *WebSocketHandler) HandleConnections(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer func() {
		h.unregister <- ws
		ws.Close()
	}()

	h.register <- ws

	go h.handleClientMessages(ws)

	for {
		time.Sleep(30 * time.Second)
		if err := ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) handleClientMessages(ws *websocket.Conn) {
	for {
		var msg map[string]interface{}

		err := ws.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Debug("websocket read error")
			}
			break
		}

		switch msg["type"] {
		case "subscribe":
			ws.WriteJSON(map[string]interface{}{
				"type":      "subscribed",
				"message":   "Successfully subscribed to updates",
				"timestamp": time.Now().Unix(),
			})

		case "ping":
			ws.WriteJSON(map[string]interface{}{
				"type": "pong",
				"time": time.Now().Unix(),
			})

		default:
			ws.WriteJSON(map[string]interface{}{
				"type":      "error",
				"message":   "Unknown message type",
				"timestamp": time.Now().Unix(),
			})
		}
	}
}

// RunHub fans published tracker events out to every connected client.
func (h *WebSocketHandler) RunHub() {
	log.Info("starting websocket hub")

	events := h.cache.Events()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}

		case message := <-events:
			h.dispatch(message)
		}
	}
}

func (h *WebSocketHandler) dispatch(message []byte) {
	for client := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			log.WithError(err).Debug("websocket broadcast failed")
			client.Close()
			delete(h.clients, client)
		}
	}
}
