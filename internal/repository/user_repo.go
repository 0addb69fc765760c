package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"alum-messaging/internal/domain"
)

// UserRepository mantiene el read model de usuarios que se replica desde el
// servicio de identidad de la plataforma.
type UserRepository interface {
	Upsert(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Upsert(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, display_name, avatar_url)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
		ON CONFLICT (id) DO UPDATE SET
			display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), users.display_name),
			avatar_url   = COALESCE(NULLIF(EXCLUDED.avatar_url, ''), users.avatar_url)
	`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Name, user.Avatar)
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `
		SELECT id, COALESCE(display_name, ''), COALESCE(avatar_url, '')
		FROM users
		WHERE id = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.Avatar)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}
