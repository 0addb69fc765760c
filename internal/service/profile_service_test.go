package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"alum-messaging/internal/domain"
)

type mockUserRepo struct {
	upserted []domain.User
	byID     map[string]domain.User
}

func (m *mockUserRepo) Upsert(_ context.Context, user domain.User) error {
	m.upserted = append(m.upserted, user)
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func TestProfileService_SyncProfile(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewProfileService(zap.NewNop(), repo)

	if err := svc.SyncProfile(context.Background(), domain.User{ID: " u1 ", Name: "Ana"}); err != nil {
		t.Fatalf("expected sync to succeed, got %v", err)
	}
	if len(repo.upserted) != 1 || repo.upserted[0].ID != "u1" {
		t.Fatalf("expected trimmed id persisted, got %+v", repo.upserted)
	}

	if err := svc.SyncProfile(context.Background(), domain.User{ID: "  "}); !errors.Is(err, ErrProfileMissingID) {
		t.Fatalf("expected ErrProfileMissingID, got %v", err)
	}
	if len(repo.upserted) != 1 {
		t.Fatalf("expected no extra upsert for blank id")
	}
}

func TestProfileService_GetProfile(t *testing.T) {
	repo := &mockUserRepo{byID: map[string]domain.User{"u1": {ID: "u1", Name: "Ana"}}}
	svc := NewProfileService(zap.NewNop(), repo)

	user, err := svc.GetProfile(context.Background(), "u1")
	if err != nil || user.Name != "Ana" {
		t.Fatalf("expected profile, got %+v err %v", user, err)
	}

	if _, err := svc.GetProfile(context.Background(), "ghost"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}
