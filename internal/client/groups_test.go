package client

import (
	"testing"
	"time"

	"alum-messaging/internal/domain"
)

func TestGroupMessagesByDay(t *testing.T) {
	day1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

	messages := []domain.Message{
		msgAt("a", day1.Add(2*time.Hour)),
		msgAt("b", day1),
		msgAt("c", day1.Add(time.Hour)),
		msgAt("d", day2),
	}

	groups := GroupMessagesByDay(messages)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	// El día más nuevo va primero.
	if !groups[0].Date.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 2024-01-02 first, got %v", groups[0].Date)
	}
	if len(groups[0].Messages) != 1 || groups[0].Messages[0].ID != "d" {
		t.Fatalf("unexpected newest group: %v", groups[0].Messages)
	}
	// Dentro del grupo, del más viejo al más nuevo.
	ids := []string{groups[1].Messages[0].ID, groups[1].Messages[1].ID, groups[1].Messages[2].ID}
	if ids[0] != "b" || ids[1] != "c" || ids[2] != "a" {
		t.Fatalf("expected oldest-first within group, got %v", ids)
	}
}

func TestGroupMessagesByDay_Empty(t *testing.T) {
	if groups := GroupMessagesByDay(nil); len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
}

func TestOldestLoadedID(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	messages := []domain.Message{
		msgAt("m2", base.Add(time.Minute)),
		msgAt("m1", base),
		msgAt("m3", base.Add(2*time.Minute)),
	}

	if got := OldestLoadedID(messages); got != "m1" {
		t.Fatalf("expected cursor m1 (oldest), got %q", got)
	}
	if got := OldestLoadedID(nil); got != "" {
		t.Fatalf("expected empty cursor for no messages, got %q", got)
	}
}
