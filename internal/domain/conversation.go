package domain

import "time"

// LastMessage es la foto desnormalizada del último mensaje de una
// conversación, suficiente para pintar la lista sin cargar la página.
type LastMessage struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation es la vista de una conversación para el usuario que la
// consulta: el otro participante, el último mensaje y su contador de no
// leídos. Cada par no ordenado de usuarios tiene a lo sumo una conversación.
type Conversation struct {
	ID          string       `json:"id"`
	OtherUser   User         `json:"otherUser"`
	LastMessage *LastMessage `json:"lastMessage,omitempty"`
	UnreadCount int          `json:"unreadCount"`
	CreatedAt   time.Time    `json:"createdAt"`
}
