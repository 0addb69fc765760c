package domain

// ConversationUnread es el contador de no leídos de una conversación.
type ConversationUnread struct {
	ConversationID string `json:"conversationId"`
	UnreadCount    int    `json:"unreadCount"`
}

// UnreadSummary agrega los contadores de no leídos del usuario. El total es
// siempre la suma de los contadores por conversación.
type UnreadSummary struct {
	TotalUnreadCount     int                  `json:"totalUnreadCount"`
	UnreadByConversation []ConversationUnread `json:"unreadByConversation"`
}
