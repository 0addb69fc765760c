package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"alum-messaging/internal/domain"
	"alum-messaging/internal/repository"
)

var (
	ErrProfileMissingID = errors.New("user id is required")
	ErrProfileNotFound  = errors.New("profile not found")
)

// ProfileService mantiene fresco el read model de usuarios: cada sesión
// autenticada trae nombre para mostrar, y aquí se vuelca para que las listas
// de conversaciones puedan renderizar al interlocutor.
type ProfileService struct {
	logger *zap.Logger
	users  repository.UserRepository
}

func NewProfileService(logger *zap.Logger, users repository.UserRepository) *ProfileService {
	return &ProfileService{logger: logger, users: users}
}

// SyncProfile vuelca al read model los datos que viajan en la credencial.
// Los campos vacíos no pisan lo ya guardado.
func (s *ProfileService) SyncProfile(ctx context.Context, user domain.User) error {
	user.ID = strings.TrimSpace(user.ID)
	if user.ID == "" {
		return ErrProfileMissingID
	}
	return s.users.Upsert(ctx, user)
}

func (s *ProfileService) GetProfile(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrProfileNotFound
	}
	return user, err
}
