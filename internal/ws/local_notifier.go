package ws

import (
	"context"
	"encoding/json"

	"alum-messaging/internal/domain"
)

// LocalNotifier reparte eventos directamente por el hub del proceso. Es el
// camino sin redis: las conexiones de otras instancias no se enteran, pero
// con una sola instancia el destinatario recibe igual la señal en vivo.
type LocalNotifier struct {
	hub *Hub
}

func NewLocalNotifier(hub *Hub) *LocalNotifier {
	return &LocalNotifier{hub: hub}
}

func (n *LocalNotifier) NotifyNewMessage(_ context.Context, recipientID string, event domain.Envelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	n.hub.SendToUser(recipientID, payload)
	return nil
}
