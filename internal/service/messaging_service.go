package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"alum-messaging/internal/domain"
	"alum-messaging/internal/repository"
)

var (
	ErrEmptyContent         = errors.New("message content is empty")
	ErrSelfMessage          = errors.New("cannot message yourself")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("user is not a participant")
)

// MessagingService coordina las reglas de negocio de mensajería directa:
// conversaciones implícitas por par de usuarios, paginación hacia atrás,
// contadores de no leídos y notificación al destinatario.
type MessagingService struct {
	logger        *zap.Logger
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	notifier      Notifier
	pageSize      int
}

func NewMessagingService(
	logger *zap.Logger,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	notifier Notifier,
	pageSize int,
) *MessagingService {
	if notifier == nil {
		notifier = NewDisabledNotifier()
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return &MessagingService{
		logger:        logger,
		conversations: conversations,
		messages:      messages,
		notifier:      notifier,
		pageSize:      pageSize,
	}
}

// PageSize es el tamaño fijo de página de mensajes.
func (s *MessagingService) PageSize() int {
	return s.pageSize
}

// SendMessage persiste un mensaje creando la conversación del par si no
// existe todavía. La notificación al destinatario es best-effort: si falla
// se registra y el polling del cliente la cubre.
func (s *MessagingService) SendMessage(ctx context.Context, senderID, recipientID, content string) (domain.Message, error) {
	senderID = strings.TrimSpace(senderID)
	recipientID = strings.TrimSpace(recipientID)
	content = strings.TrimSpace(content)

	if content == "" {
		return domain.Message{}, ErrEmptyContent
	}
	if senderID == "" || recipientID == "" {
		return domain.Message{}, ErrNotParticipant
	}
	if senderID == recipientID {
		return domain.Message{}, ErrSelfMessage
	}

	now := time.Now().UTC()
	conversationID, err := s.conversations.GetOrCreate(ctx, uuid.NewString(), senderID, recipientID, now)
	if err != nil {
		return domain.Message{}, err
	}

	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      now,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return domain.Message{}, err
	}

	event := domain.Envelope{
		Type:           domain.EventNewMessage,
		ConversationID: conversationID,
		SenderID:       senderID,
		CreatedAt:      msg.CreatedAt,
	}
	if err := s.notifier.NotifyNewMessage(ctx, recipientID, event); err != nil {
		s.logger.Warn("notify new message failed",
			zap.Error(err),
			zap.String("conversation_id", conversationID),
		)
	}

	return msg, nil
}

func (s *MessagingService) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return s.conversations.ListForUser(ctx, userID)
}

// UnreadSummary agrega los contadores por conversación; el total es siempre
// la suma de los parciales.
func (s *MessagingService) UnreadSummary(ctx context.Context, userID string) (domain.UnreadSummary, error) {
	counts, err := s.messages.UnreadByConversation(ctx, userID)
	if err != nil {
		return domain.UnreadSummary{}, err
	}

	summary := domain.UnreadSummary{
		UnreadByConversation: make([]domain.ConversationUnread, 0, len(counts)),
	}
	for conversationID, count := range counts {
		summary.TotalUnreadCount += count
		summary.UnreadByConversation = append(summary.UnreadByConversation, domain.ConversationUnread{
			ConversationID: conversationID,
			UnreadCount:    count,
		})
	}
	sort.Slice(summary.UnreadByConversation, func(i, j int) bool {
		return summary.UnreadByConversation[i].ConversationID < summary.UnreadByConversation[j].ConversationID
	})

	return summary, nil
}

// ConversationPage devuelve una página de mensajes de una conversación en
// la que participa el usuario. beforeID vacío devuelve la página más nueva.
func (s *MessagingService) ConversationPage(ctx context.Context, userID, conversationID string, limit int, beforeID string) (domain.MessagePage, error) {
	if err := s.requireParticipant(ctx, userID, conversationID); err != nil {
		return domain.MessagePage{}, err
	}

	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}

	messages, hasMore, err := s.messages.ListPage(ctx, conversationID, limit, beforeID)
	if err != nil {
		return domain.MessagePage{}, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	return domain.MessagePage{Messages: messages, HasMore: hasMore}, nil
}

// MarkMessagesAsRead estampa como leídos los mensajes indicados. Solo los
// dirigidos al lector cuentan; el resto se ignora en silencio.
func (s *MessagingService) MarkMessagesAsRead(ctx context.Context, userID, conversationID string, messageIDs []string) (int64, error) {
	if err := s.requireParticipant(ctx, userID, conversationID); err != nil {
		return 0, err
	}
	return s.messages.MarkRead(ctx, conversationID, userID, messageIDs, time.Now().UTC())
}

// DeleteConversation oculta la conversación solo para el solicitante. Un
// mensaje nuevo entre el par la hace reaparecer para ambos.
func (s *MessagingService) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	err := s.conversations.HideForUser(ctx, conversationID, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConversationNotFound
	}
	return err
}

func (s *MessagingService) requireParticipant(ctx context.Context, userID, conversationID string) error {
	rec, err := s.conversations.GetByID(ctx, conversationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConversationNotFound
	}
	if err != nil {
		return err
	}
	if _, ok := rec.Participant(userID); !ok {
		return ErrNotParticipant
	}
	return nil
}
