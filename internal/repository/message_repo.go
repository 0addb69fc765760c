package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"alum-messaging/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	// ListPage devuelve una página de mensajes ascendente por created_at.
	// Un cursor no vacío pagina hacia atrás: solo mensajes anteriores al
	// mensaje con ese id. El booleano indica si quedan mensajes más viejos.
	ListPage(ctx context.Context, conversationID string, limit int, beforeID string) ([]domain.Message, bool, error)
	// MarkRead estampa read_at solo en mensajes dirigidos al lector.
	MarkRead(ctx context.Context, conversationID, readerID string, messageIDs []string, readAt time.Time) (int64, error)
	UnreadByConversation(ctx context.Context, userID string) (map[string]int, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) error {
	const query = `
		INSERT INTO messages (id, conversation_id, sender_id, content, created_at, read_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.ConversationID,
		message.SenderID,
		message.Content,
		message.CreatedAt,
		message.ReadAt,
	)
	return err
}

// Se pide un mensaje extra para saber si hay página anterior; el cursor
// compara por (created_at, id) para desempatar timestamps iguales. El cursor
// vive en su propia consulta: con un único uso del parámetro el servidor lo
// tipea como uuid, mientras que mezclarlo con una comparación de texto haría
// fallar el prepare.
const (
	listPageHeadQuery = `
		SELECT id, conversation_id, sender_id, content, created_at, read_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 + 1
	`
	listPageBeforeQuery = `
		SELECT id, conversation_id, sender_id, content, created_at, read_at
		FROM messages
		WHERE conversation_id = $1
		  AND (created_at, id) < (SELECT created_at, id FROM messages WHERE id = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 + 1
	`
)

func listPageStatement(conversationID string, limit int, beforeID string) (string, []any) {
	if beforeID == "" {
		return listPageHeadQuery, []any{conversationID, limit}
	}
	return listPageBeforeQuery, []any{conversationID, limit, beforeID}
}

func (r *PgMessageRepository) ListPage(ctx context.Context, conversationID string, limit int, beforeID string) ([]domain.Message, bool, error) {
	query, args := listPageStatement(conversationID, limit, beforeID)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		err = rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.Content,
			&msg.CreatedAt,
			&msg.ReadAt,
		)
		if err != nil {
			return nil, false, err
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	// La consulta trae newest-first; la página se entrega ascendente.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, hasMore, nil
}

func (r *PgMessageRepository) MarkRead(ctx context.Context, conversationID, readerID string, messageIDs []string, readAt time.Time) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	const query = `
		UPDATE messages
		SET read_at = $4
		WHERE conversation_id = $1
		  AND id = ANY($3)
		  AND sender_id <> $2
		  AND read_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, conversationID, readerID, messageIDs, readAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgMessageRepository) UnreadByConversation(ctx context.Context, userID string) (map[string]int, error) {
	const query = `
		SELECT m.conversation_id, COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE ((c.user_a = $1 AND NOT c.hidden_for_a)
		    OR (c.user_b = $1 AND NOT c.hidden_for_b))
		  AND m.sender_id <> $1
		  AND m.read_at IS NULL
		GROUP BY m.conversation_id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			conversationID string
			count          int
		)
		if err = rows.Scan(&conversationID, &count); err != nil {
			return nil, err
		}
		counts[conversationID] = count
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}
