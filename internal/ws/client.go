package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"alum-messaging/internal/domain"
	"alum-messaging/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 4096
)

// Client es una conexión websocket autenticada de un usuario. El canal es
// ante todo de notificaciones; el único comando entrante soportado es el
// envío directo de mensajes.
type Client struct {
	hub       *Hub
	logger    *zap.Logger
	conn      *websocket.Conn
	send      chan []byte
	userID    string
	messaging *service.MessagingService
}

type inboundCommand struct {
	Type        string `json:"type"`
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("ws read error", zap.Error(err), zap.String("user_id", c.userID))
			}
			return
		}

		var cmd inboundCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.sendEnvelope(domain.Envelope{Type: domain.EventMessageError, Error: "invalid json"})
			continue
		}

		switch cmd.Type {
		case "sendMessage":
			c.handleSendMessage(cmd)
		default:
			c.sendEnvelope(domain.Envelope{Type: domain.EventMessageError, Error: "unsupported type"})
		}
	}
}

func (c *Client) handleSendMessage(cmd inboundCommand) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := c.messaging.SendMessage(ctx, c.userID, cmd.RecipientID, cmd.Content)
	if err != nil {
		reason := "send failed"
		if errors.Is(err, service.ErrEmptyContent) || errors.Is(err, service.ErrSelfMessage) {
			reason = err.Error()
		}
		c.sendEnvelope(domain.Envelope{Type: domain.EventMessageError, Error: reason})
		return
	}

	c.sendEnvelope(domain.Envelope{
		Type:           domain.EventMessageSent,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		CreatedAt:      msg.CreatedAt,
	})
}

func (c *Client) sendEnvelope(env domain.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker((pongWait * 9) / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Serve arranca los pumps de lectura y escritura; retorna al cerrarse la
// conexión.
func (c *Client) Serve() {
	go c.writePump()
	c.readPump()
}
