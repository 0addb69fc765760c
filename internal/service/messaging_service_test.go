package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"alum-messaging/internal/domain"
	"alum-messaging/internal/repository"
)

type mockConversationRepo struct {
	pairIDs          map[string]string
	records          map[string]repository.ConversationRecord
	getOrCreateCalls int
	listResult       []domain.Conversation
	listErr          error
	hideErr          error
	hiddenFor        []string
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{
		pairIDs: make(map[string]string),
		records: make(map[string]repository.ConversationRecord),
	}
}

func (m *mockConversationRepo) GetOrCreate(_ context.Context, id, userA, userB string, createdAt time.Time) (string, error) {
	m.getOrCreateCalls++
	if userA > userB {
		userA, userB = userB, userA
	}
	key := userA + "|" + userB
	if existing, ok := m.pairIDs[key]; ok {
		return existing, nil
	}
	m.pairIDs[key] = id
	m.records[id] = repository.ConversationRecord{ID: id, UserA: userA, UserB: userB, CreatedAt: createdAt}
	return id, nil
}

func (m *mockConversationRepo) GetByID(_ context.Context, id string) (repository.ConversationRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return repository.ConversationRecord{}, pgx.ErrNoRows
	}
	return rec, nil
}

func (m *mockConversationRepo) ListForUser(_ context.Context, _ string) ([]domain.Conversation, error) {
	return m.listResult, m.listErr
}

func (m *mockConversationRepo) HideForUser(_ context.Context, id, userID string) error {
	if m.hideErr != nil {
		return m.hideErr
	}
	if _, ok := m.records[id]; !ok {
		return pgx.ErrNoRows
	}
	m.hiddenFor = append(m.hiddenFor, userID)
	return nil
}

type mockMessageRepo struct {
	created    []domain.Message
	createErr  error
	pageData   []domain.Message
	pageMore   bool
	lastLimit  int
	lastBefore string
	markedIDs  []string
	markReader string
	unread     map[string]int
}

func (m *mockMessageRepo) Create(_ context.Context, message domain.Message) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, message)
	return nil
}

func (m *mockMessageRepo) ListPage(_ context.Context, _ string, limit int, beforeID string) ([]domain.Message, bool, error) {
	m.lastLimit = limit
	m.lastBefore = beforeID
	return m.pageData, m.pageMore, nil
}

func (m *mockMessageRepo) MarkRead(_ context.Context, _, readerID string, messageIDs []string, _ time.Time) (int64, error) {
	m.markReader = readerID
	m.markedIDs = append(m.markedIDs, messageIDs...)
	return int64(len(messageIDs)), nil
}

func (m *mockMessageRepo) UnreadByConversation(_ context.Context, _ string) (map[string]int, error) {
	return m.unread, nil
}

type mockNotifier struct {
	recipients []string
	events     []domain.Envelope
	err        error
}

func (m *mockNotifier) NotifyNewMessage(_ context.Context, recipientID string, event domain.Envelope) error {
	m.recipients = append(m.recipients, recipientID)
	m.events = append(m.events, event)
	return m.err
}

func newTestMessagingService(convs *mockConversationRepo, msgs *mockMessageRepo, notifier Notifier) *MessagingService {
	return NewMessagingService(zap.NewNop(), convs, msgs, notifier, 20)
}

func TestSendMessage_CreatesConversationAndNotifies(t *testing.T) {
	convs := newMockConversationRepo()
	msgs := &mockMessageRepo{}
	notifier := &mockNotifier{}
	svc := newTestMessagingService(convs, msgs, notifier)

	msg, err := svc.SendMessage(context.Background(), "alice", "bob", "  hola bob  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if msg.Content != "hola bob" {
		t.Fatalf("expected trimmed content, got %q", msg.Content)
	}
	if msg.ID == "" || msg.ConversationID == "" || msg.CreatedAt.IsZero() {
		t.Fatalf("expected populated message, got %+v", msg)
	}
	if len(msgs.created) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(msgs.created))
	}
	if len(notifier.recipients) != 1 || notifier.recipients[0] != "bob" {
		t.Fatalf("expected notification for bob, got %v", notifier.recipients)
	}
	if notifier.events[0].Type != domain.EventNewMessage {
		t.Fatalf("expected newMessage event, got %q", notifier.events[0].Type)
	}
}

func TestSendMessage_SamePairSharesConversation(t *testing.T) {
	convs := newMockConversationRepo()
	msgs := &mockMessageRepo{}
	svc := newTestMessagingService(convs, msgs, &mockNotifier{})

	first, err := svc.SendMessage(context.Background(), "alice", "bob", "hola")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := svc.SendMessage(context.Background(), "bob", "alice", "buenas")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first.ConversationID != second.ConversationID {
		t.Fatalf("expected one conversation per pair, got %q and %q", first.ConversationID, second.ConversationID)
	}
}

func TestSendMessage_Validation(t *testing.T) {
	convs := newMockConversationRepo()
	msgs := &mockMessageRepo{}
	svc := newTestMessagingService(convs, msgs, &mockNotifier{})

	if _, err := svc.SendMessage(context.Background(), "alice", "bob", "   "); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
	if _, err := svc.SendMessage(context.Background(), "alice", "alice", "hola"); !errors.Is(err, ErrSelfMessage) {
		t.Fatalf("expected ErrSelfMessage, got %v", err)
	}
	if convs.getOrCreateCalls != 0 || len(msgs.created) != 0 {
		t.Fatalf("expected no repository calls on validation failure")
	}
}

func TestSendMessage_NotifyFailureDoesNotFailSend(t *testing.T) {
	convs := newMockConversationRepo()
	msgs := &mockMessageRepo{}
	notifier := &mockNotifier{err: errors.New("redis down")}
	svc := newTestMessagingService(convs, msgs, notifier)

	if _, err := svc.SendMessage(context.Background(), "alice", "bob", "hola"); err != nil {
		t.Fatalf("expected send to succeed despite notify failure, got %v", err)
	}
	if len(msgs.created) != 1 {
		t.Fatalf("expected message persisted, got %d", len(msgs.created))
	}
}

func TestUnreadSummary_TotalIsSumOfPartials(t *testing.T) {
	convs := newMockConversationRepo()
	msgs := &mockMessageRepo{unread: map[string]int{"c1": 3, "c2": 2, "c3": 1}}
	svc := newTestMessagingService(convs, msgs, &mockNotifier{})

	summary, err := svc.UnreadSummary(context.Background(), "alice")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.TotalUnreadCount != 6 {
		t.Fatalf("expected total 6, got %d", summary.TotalUnreadCount)
	}
	sum := 0
	for _, u := range summary.UnreadByConversation {
		sum += u.UnreadCount
	}
	if sum != summary.TotalUnreadCount {
		t.Fatalf("expected total to equal sum of partials, got %d vs %d", summary.TotalUnreadCount, sum)
	}
}

func TestConversationPage_RequiresParticipant(t *testing.T) {
	convs := newMockConversationRepo()
	convs.records["c1"] = repository.ConversationRecord{ID: "c1", UserA: "alice", UserB: "bob"}
	msgs := &mockMessageRepo{}
	svc := newTestMessagingService(convs, msgs, &mockNotifier{})

	if _, err := svc.ConversationPage(context.Background(), "mallory", "c1", 20, ""); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := svc.ConversationPage(context.Background(), "alice", "missing", 20, ""); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestConversationPage_ClampsLimit(t *testing.T) {
	convs := newMockConversationRepo()
	convs.records["c1"] = repository.ConversationRecord{ID: "c1", UserA: "alice", UserB: "bob"}
	msgs := &mockMessageRepo{}
	svc := newTestMessagingService(convs, msgs, &mockNotifier{})

	cases := []int{0, -5, 500}
	for _, limit := range cases {
		if _, err := svc.ConversationPage(context.Background(), "alice", "c1", limit, "m9"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if msgs.lastLimit != 20 {
			t.Fatalf("expected limit clamped to 20 for input %d, got %d", limit, msgs.lastLimit)
		}
	}
	if msgs.lastBefore != "m9" {
		t.Fatalf("expected cursor forwarded, got %q", msgs.lastBefore)
	}
}

func TestMarkMessagesAsRead_PassesReader(t *testing.T) {
	convs := newMockConversationRepo()
	convs.records["c1"] = repository.ConversationRecord{ID: "c1", UserA: "alice", UserB: "bob"}
	msgs := &mockMessageRepo{}
	svc := newTestMessagingService(convs, msgs, &mockNotifier{})

	updated, err := svc.MarkMessagesAsRead(context.Background(), "bob", "c1", []string{"m1", "m2"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated != 2 || msgs.markReader != "bob" {
		t.Fatalf("expected 2 updates for bob, got %d for %q", updated, msgs.markReader)
	}
}

func TestDeleteConversation_NotFound(t *testing.T) {
	convs := newMockConversationRepo()
	svc := newTestMessagingService(convs, &mockMessageRepo{}, &mockNotifier{})

	if err := svc.DeleteConversation(context.Background(), "alice", "missing"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestDeleteConversation_HidesForRequester(t *testing.T) {
	convs := newMockConversationRepo()
	convs.records["c1"] = repository.ConversationRecord{ID: "c1", UserA: "alice", UserB: "bob"}
	svc := newTestMessagingService(convs, &mockMessageRepo{}, &mockNotifier{})

	if err := svc.DeleteConversation(context.Background(), "alice", "c1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(convs.hiddenFor) != 1 || convs.hiddenFor[0] != "alice" {
		t.Fatalf("expected hide for alice, got %v", convs.hiddenFor)
	}
}
