package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"alum-messaging/internal/domain"
)

// ConversationRecord es la fila cruda de una conversación, sin la vista
// por-usuario que arma el servicio.
type ConversationRecord struct {
	ID         string
	UserA      string
	UserB      string
	HiddenForA bool
	HiddenForB bool
	CreatedAt  time.Time
}

// Participant devuelve el otro participante de la conversación.
func (c ConversationRecord) Participant(userID string) (string, bool) {
	switch userID {
	case c.UserA:
		return c.UserB, true
	case c.UserB:
		return c.UserA, true
	}
	return "", false
}

type ConversationRepository interface {
	// GetOrCreate devuelve la conversación única para el par de usuarios,
	// creándola si no existe. Reaparece para ambos lados si estaba oculta.
	GetOrCreate(ctx context.Context, id, userA, userB string, createdAt time.Time) (string, error)
	GetByID(ctx context.Context, id string) (ConversationRecord, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Conversation, error)
	HideForUser(ctx context.Context, id, userID string) error
}

type PgConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

// normalizePair ordena el par para que (A,B) y (B,A) caigan en la misma fila.
func normalizePair(userA, userB string) (string, string) {
	if userA > userB {
		return userB, userA
	}
	return userA, userB
}

func (r *PgConversationRepository) GetOrCreate(ctx context.Context, id, userA, userB string, createdAt time.Time) (string, error) {
	const query = `
		INSERT INTO conversations (id, user_a, user_b, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_a, user_b)
		DO UPDATE SET hidden_for_a = FALSE, hidden_for_b = FALSE
		RETURNING id
	`

	userA, userB = normalizePair(userA, userB)

	var conversationID string
	err := r.pool.QueryRow(ctx, query, id, userA, userB, createdAt).Scan(&conversationID)
	if err != nil {
		return "", err
	}
	return conversationID, nil
}

func (r *PgConversationRepository) GetByID(ctx context.Context, id string) (ConversationRecord, error) {
	const query = `
		SELECT id, user_a, user_b, hidden_for_a, hidden_for_b, created_at
		FROM conversations
		WHERE id = $1
	`

	var rec ConversationRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.UserA,
		&rec.UserB,
		&rec.HiddenForA,
		&rec.HiddenForB,
		&rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ConversationRecord{}, err
	}
	return rec, err
}

// ListForUser arma la lista de conversaciones visibles del usuario con el
// último mensaje y el contador de no leídos de cada una, ordenada por
// actividad más reciente. Los datos del otro usuario salen del read model
// de usuarios; si falta la fila se degrada a solo el identificador.
func (r *PgConversationRepository) ListForUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	const query = `
		SELECT c.id,
		       c.created_at,
		       CASE WHEN c.user_a = $1 THEN c.user_b ELSE c.user_a END AS other_id,
		       u.display_name,
		       u.avatar_url,
		       lm.content,
		       lm.created_at,
		       COALESCE(un.unread, 0)
		FROM conversations c
		LEFT JOIN users u
		       ON u.id = CASE WHEN c.user_a = $1 THEN c.user_b ELSE c.user_a END
		LEFT JOIN LATERAL (
			SELECT content, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread
			FROM messages
			WHERE conversation_id = c.id
			  AND sender_id <> $1
			  AND read_at IS NULL
		) un ON TRUE
		WHERE (c.user_a = $1 AND NOT c.hidden_for_a)
		   OR (c.user_b = $1 AND NOT c.hidden_for_b)
		ORDER BY lm.created_at DESC NULLS LAST, c.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		var (
			conv        domain.Conversation
			displayName *string
			avatarURL   *string
			lmContent   *string
			lmCreatedAt *time.Time
		)

		err = rows.Scan(
			&conv.ID,
			&conv.CreatedAt,
			&conv.OtherUser.ID,
			&displayName,
			&avatarURL,
			&lmContent,
			&lmCreatedAt,
			&conv.UnreadCount,
		)
		if err != nil {
			return nil, err
		}
		if displayName != nil {
			conv.OtherUser.Name = *displayName
		}
		if avatarURL != nil {
			conv.OtherUser.Avatar = *avatarURL
		}
		if lmContent != nil && lmCreatedAt != nil {
			conv.LastMessage = &domain.LastMessage{
				Content:   *lmContent,
				CreatedAt: *lmCreatedAt,
			}
		}
		conversations = append(conversations, conv)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return conversations, nil
}

func (r *PgConversationRepository) HideForUser(ctx context.Context, id, userID string) error {
	const query = `
		UPDATE conversations
		SET hidden_for_a = CASE WHEN user_a = $2 THEN TRUE ELSE hidden_for_a END,
		    hidden_for_b = CASE WHEN user_b = $2 THEN TRUE ELSE hidden_for_b END
		WHERE id = $1 AND (user_a = $2 OR user_b = $2)
	`

	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
