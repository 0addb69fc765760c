package domain

import "time"

// Message es un mensaje directo dentro de una conversación.
// Content y CreatedAt son inmutables una vez creado el mensaje.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	SenderID       string     `json:"senderId"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"createdAt"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
}

// MessagePage es una ventana acotada de mensajes de una conversación,
// ordenada ascendente por CreatedAt.
type MessagePage struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"hasMore"`
}
