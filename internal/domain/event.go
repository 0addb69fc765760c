package domain

import "time"

// Eventos del canal de notificaciones. El evento newMessage es solo una
// señal: el cliente reconcilia contra la API, nunca usa el payload para
// mutar estado local.
const (
	EventNewMessage   = "newMessage"
	EventMessageSent  = "messageSent"
	EventMessageError = "messageError"
)

// Envelope es el formato de cable de todos los eventos del socket.
type Envelope struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversationId,omitempty"`
	SenderID       string    `json:"senderId,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
	Error          string    `json:"error,omitempty"`
}
