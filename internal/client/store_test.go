package client

import (
	"testing"
	"time"

	"alum-messaging/internal/domain"
)

func msgAt(id string, ts time.Time) domain.Message {
	return domain.Message{ID: id, Content: "m-" + id, CreatedAt: ts}
}

func TestStorePrepend_NoDuplicatesAscendingOrder(t *testing.T) {
	store := NewStore()
	store.Open("c1")

	base := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	newer := []domain.Message{
		msgAt("m3", base.Add(2*time.Minute)),
		msgAt("m4", base.Add(3*time.Minute)),
	}
	older := []domain.Message{
		msgAt("m1", base),
		msgAt("m2", base.Add(time.Minute)),
		msgAt("m3", base.Add(2*time.Minute)), // solapa con la página ya cargada
	}

	store.ReplaceMessages("c1", newer)
	store.PrependMessages("c1", older)

	got := store.Messages()
	if len(got) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got))
	}
	for i, want := range []string{"m1", "m2", "m3", "m4"} {
		if got[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
			t.Fatalf("messages not ascending at position %d", i)
		}
	}
}

func TestStoreReplace_IgnoresClosedConversation(t *testing.T) {
	store := NewStore()
	store.Open("c1")
	store.ReplaceMessages("c1", []domain.Message{msgAt("m1", time.Now())})

	// Un resultado tardío de otra conversación no pisa la abierta.
	store.ReplaceMessages("c2", []domain.Message{msgAt("x1", time.Now())})

	got := store.Messages()
	if len(got) != 1 || got[0].ID != "m1" {
		t.Fatalf("expected messages of open conversation only, got %v", got)
	}
}

func TestStoreOpen_SwitchClearsMessages(t *testing.T) {
	store := NewStore()
	store.Open("c1")
	store.ReplaceMessages("c1", []domain.Message{msgAt("m1", time.Now())})

	store.Open("c2")
	if len(store.Messages()) != 0 {
		t.Fatalf("expected messages cleared on conversation switch")
	}

	store.Open("c2")
	store.ReplaceMessages("c2", []domain.Message{msgAt("m2", time.Now())})
	store.Open("c2")
	if len(store.Messages()) != 1 {
		t.Fatalf("expected reopening same conversation to keep messages")
	}
}

func TestStoreMergeUnread_ByIDAndOrderTolerant(t *testing.T) {
	store := NewStore()
	summary := domain.UnreadSummary{
		TotalUnreadCount: 5,
		UnreadByConversation: []domain.ConversationUnread{
			{ConversationID: "c1", UnreadCount: 3},
			{ConversationID: "c2", UnreadCount: 2},
			{ConversationID: "ghost", UnreadCount: 9},
		},
	}

	// El resumen puede llegar antes que la lista de conversaciones.
	store.MergeUnread(summary)
	if store.UnreadCount() != 5 {
		t.Fatalf("expected total 5, got %d", store.UnreadCount())
	}

	store.SetConversations([]domain.Conversation{
		{ID: "c1"},
		{ID: "c2", UnreadCount: 7},
		{ID: "c3", UnreadCount: 4},
	})
	store.MergeUnread(summary)

	convs := store.Conversations()
	if convs[0].UnreadCount != 3 || convs[1].UnreadCount != 2 {
		t.Fatalf("expected merged counts 3 and 2, got %d and %d", convs[0].UnreadCount, convs[1].UnreadCount)
	}
	// Una conversación sin entrada en el resumen queda en cero.
	if convs[2].UnreadCount != 0 {
		t.Fatalf("expected c3 reset to 0, got %d", convs[2].UnreadCount)
	}
}

func TestStoreLoadingFlags_Independent(t *testing.T) {
	store := NewStore()
	store.SetLoadingConversations(true)
	store.SetLoadingUnread(true)

	flags := store.Loading()
	if !flags.Conversations || !flags.UnreadCount || flags.Messages {
		t.Fatalf("unexpected flags: %+v", flags)
	}

	store.SetLoadingConversations(false)
	flags = store.Loading()
	if flags.Conversations || !flags.UnreadCount {
		t.Fatalf("expected flags to toggle independently: %+v", flags)
	}
}
