package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"alum-messaging/internal/domain"
)

// UserChannelPattern es el patrón que suscribe el hub para recibir
// notificaciones de cualquier usuario conectado a esta instancia.
const UserChannelPattern = "user:*"

// UserChannel devuelve el canal de notificaciones de un usuario.
func UserChannel(userID string) string {
	return "user:" + userID
}

// Notifier publica eventos de mensajería para que el hub los reparta a las
// conexiones vivas del destinatario, esté o no en esta instancia.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, recipientID string, event domain.Envelope) error
}

type redisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) Notifier {
	if client == nil {
		return nil
	}
	return &redisNotifier{client: client}
}

func (n *redisNotifier) NotifyNewMessage(ctx context.Context, recipientID string, event domain.Envelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	return n.client.Publish(ctx, UserChannel(recipientID), payload).Err()
}

// disabledNotifier se usa cuando no hay redis configurado; los clientes
// siguen consistentes por el polling de no leídos.
type disabledNotifier struct{}

func NewDisabledNotifier() Notifier {
	return disabledNotifier{}
}

func (disabledNotifier) NotifyNewMessage(context.Context, string, domain.Envelope) error {
	return nil
}
