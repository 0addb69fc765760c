package client

import (
	"sort"
	"sync"

	"alum-messaging/internal/domain"
)

// LoadingFlags expone el estado de carga por operación, de forma
// independiente, para que la superficie de render pueda mostrar estados
// granulares.
type LoadingFlags struct {
	Conversations bool
	Messages      bool
	UnreadCount   bool
}

// Store es el contenedor de estado del lado cliente: la lista de
// conversaciones, la secuencia de mensajes de la conversación abierta y el
// contador global de no leídos. Es el punto de merge entre el historial
// REST y las señales del transporte.
//
// Los lectores nunca observan una lista a medio mutar: cada fetch reemplaza
// al completarse, no se parchea incrementalmente mientras está en vuelo.
type Store struct {
	mu sync.RWMutex

	conversations      []domain.Conversation
	messages           []domain.Message
	openConversationID string
	unreadCount        int
	loading            LoadingFlags
}

func NewStore() *Store {
	return &Store{}
}

// SetConversations reemplaza la lista completa.
func (s *Store) SetConversations(conversations []domain.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = append([]domain.Conversation(nil), conversations...)
}

func (s *Store) Conversations() []domain.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Conversation(nil), s.conversations...)
}

// MergeUnread aplica un resumen de no leídos: el total se reemplaza
// (last-write-wins) y los parciales se casan por identificador contra la
// lista ya cargada. Conversaciones desconocidas se ignoran en silencio;
// las recogerá el próximo fetch completo. El merge tolera que la respuesta
// de unread llegue antes o después que la de conversaciones.
func (s *Store) MergeUnread(summary domain.UnreadSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unreadCount = summary.TotalUnreadCount

	byID := make(map[string]int, len(summary.UnreadByConversation))
	for _, u := range summary.UnreadByConversation {
		byID[u.ConversationID] = u.UnreadCount
	}
	for i := range s.conversations {
		if count, ok := byID[s.conversations[i].ID]; ok {
			s.conversations[i].UnreadCount = count
		} else {
			s.conversations[i].UnreadCount = 0
		}
	}
}

func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unreadCount
}

// Open fija la conversación abierta y descarta los mensajes de la anterior.
func (s *Store) Open(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openConversationID != conversationID {
		s.messages = nil
	}
	s.openConversationID = conversationID
}

func (s *Store) OpenConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openConversationID
}

// ReplaceMessages sustituye la secuencia completa (página 1).
func (s *Store) ReplaceMessages(conversationID string, messages []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conversationID != s.openConversationID {
		return
	}
	s.messages = sortedByCreatedAt(append([]domain.Message(nil), messages...))
}

// PrependMessages agrega una página más vieja al principio sin duplicar ni
// desordenar los mensajes ya cargados.
func (s *Store) PrependMessages(conversationID string, older []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conversationID != s.openConversationID {
		return
	}

	seen := make(map[string]bool, len(s.messages))
	for _, msg := range s.messages {
		seen[msg.ID] = true
	}

	merged := make([]domain.Message, 0, len(older)+len(s.messages))
	for _, msg := range older {
		if !seen[msg.ID] {
			merged = append(merged, msg)
		}
	}
	merged = append(merged, s.messages...)
	s.messages = sortedByCreatedAt(merged)
}

func (s *Store) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message(nil), s.messages...)
}

func (s *Store) SetLoadingConversations(v bool) {
	s.mu.Lock()
	s.loading.Conversations = v
	s.mu.Unlock()
}

func (s *Store) SetLoadingMessages(v bool) {
	s.mu.Lock()
	s.loading.Messages = v
	s.mu.Unlock()
}

func (s *Store) SetLoadingUnread(v bool) {
	s.mu.Lock()
	s.loading.UnreadCount = v
	s.mu.Unlock()
}

func (s *Store) Loading() LoadingFlags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func sortedByCreatedAt(messages []domain.Message) []domain.Message {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages
}
