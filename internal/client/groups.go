package client

import (
	"sort"
	"time"

	"alum-messaging/internal/domain"
)

// MessageGroup es un día calendario de mensajes para render: los grupos se
// listan del día más nuevo al más viejo, pero dentro de cada grupo los
// mensajes van del más viejo al más nuevo.
type MessageGroup struct {
	Date     time.Time
	Messages []domain.Message
}

// GroupMessagesByDay bucketiza la secuencia plana por fecha calendario de
// CreatedAt.
func GroupMessagesByDay(messages []domain.Message) []MessageGroup {
	byDay := make(map[time.Time][]domain.Message)
	for _, msg := range messages {
		y, m, d := msg.CreatedAt.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, msg.CreatedAt.Location())
		byDay[day] = append(byDay[day], msg)
	}

	groups := make([]MessageGroup, 0, len(byDay))
	for day, msgs := range byDay {
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		})
		groups = append(groups, MessageGroup{Date: day, Messages: msgs})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Date.After(groups[j].Date)
	})

	return groups
}

// OldestLoadedID calcula el cursor de paginación: el identificador del
// mensaje más viejo ya cargado, porque la paginación camina hacia atrás en
// el tiempo.
func OldestLoadedID(messages []domain.Message) string {
	if len(messages) == 0 {
		return ""
	}
	oldest := messages[0]
	for _, msg := range messages[1:] {
		if msg.CreatedAt.Before(oldest.CreatedAt) {
			oldest = msg
		}
	}
	return oldest.ID
}
