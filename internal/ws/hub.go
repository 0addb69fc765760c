package ws

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"alum-messaging/internal/service"
)

// Hub mantiene las conexiones vivas por usuario y reparte las
// notificaciones que llegan por redis pub/sub, de modo que un mensaje
// enviado en otra instancia también despierte a los clientes locales.
type Hub struct {
	logger *zap.Logger
	rdb    *redis.Client

	clients    map[string]map[*Client]bool // userID -> conexiones
	register   chan *Client
	unregister chan *Client
	broadcast  chan *delivery
}

type delivery struct {
	userID  string
	payload []byte
}

func NewHub(logger *zap.Logger, rdb *redis.Client) *Hub {
	h := &Hub{
		logger:     logger,
		rdb:        rdb,
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *delivery, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	if h.rdb != nil {
		pubsub := h.rdb.PSubscribe(context.Background(), service.UserChannelPattern)
		ch := pubsub.Channel()
		go func() {
			for msg := range ch {
				userID := strings.TrimPrefix(msg.Channel, "user:")
				h.broadcast <- &delivery{userID: userID, payload: []byte(msg.Payload)}
			}
		}()
	}

	for {
		select {
		case c := <-h.register:
			if _, ok := h.clients[c.userID]; !ok {
				h.clients[c.userID] = make(map[*Client]bool)
			}
			h.clients[c.userID][c] = true
			h.logger.Info("ws client registered", zap.String("user_id", c.userID))
		case c := <-h.unregister:
			if conns, ok := h.clients[c.userID]; ok {
				if _, exists := conns[c]; exists {
					delete(conns, c)
					close(c.send)
				}
				if len(conns) == 0 {
					delete(h.clients, c.userID)
				}
			}
		case d := <-h.broadcast:
			conns, ok := h.clients[d.userID]
			if !ok {
				continue
			}
			for c := range conns {
				select {
				case c.send <- d.payload:
				default:
					// Conexión atascada: se descarta antes que bloquear al hub.
					close(c.send)
					delete(conns, c)
				}
			}
		}
	}
}

func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// SendToUser encola un payload para todas las conexiones locales del usuario.
func (h *Hub) SendToUser(userID string, payload []byte) {
	h.broadcast <- &delivery{userID: userID, payload: payload}
}
