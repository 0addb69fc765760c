package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"alum-messaging/internal/domain"
)

const unreadPollInterval = 30 * time.Second

var (
	ErrBlankMessage = errors.New("message content is blank")
	ErrSendInFlight = errors.New("a send is already in flight")
)

// ViewState es el estado de la vista de mensajes de una conversación.
type ViewState int

const (
	ViewEmpty ViewState = iota
	ViewLoading
	ViewLoaded
	// ViewLoadedWithError conserva los datos viejos con el error marcado;
	// no hay reintento automático, el próximo disparo manual reintenta.
	ViewLoadedWithError
)

// NotificationTransport es lo que el motor necesita del transporte.
type NotificationTransport interface {
	Connect(ctx context.Context, sessionToken string) error
	OnNewMessage(handler func(domain.Envelope))
	Disconnect()
}

// Engine es el único punto que reconcilia el estado REST con las señales en
// vivo. Toda mutación (send, mark-read, delete) sigue la misma estrategia:
// llamar a la API y refrescar el resumen desde el servidor, sin parches
// optimistas locales.
type Engine struct {
	logger    *zap.Logger
	api       API
	transport NotificationTransport
	store     *Store

	sending atomic.Bool
	stopped atomic.Bool

	viewMu sync.Mutex
	views  map[string]ViewState

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewEngine(logger *zap.Logger, api API, transport NotificationTransport, store *Store) *Engine {
	if store == nil {
		store = NewStore()
	}
	return &Engine{
		logger:    logger,
		api:       api,
		transport: transport,
		store:     store,
		views:     make(map[string]ViewState),
		stopCh:    make(chan struct{}),
	}
}

func (e *Engine) Store() *Store {
	return e.store
}

// Start conecta el transporte, registra la reacción a newMessage y arranca
// el polling de no leídos como respaldo por si se pierde una señal.
func (e *Engine) Start(ctx context.Context, sessionToken string) {
	e.transport.OnNewMessage(func(domain.Envelope) {
		// La señal nunca muta contadores directamente: se reconsulta todo.
		e.refreshSummaries(context.Background())
	})

	if err := e.transport.Connect(ctx, sessionToken); err != nil {
		e.logger.Warn("transport connect failed", zap.Error(err))
	}

	go e.pollLoop()
}

// Stop detiene el polling y desconecta el transporte. Los fetches en vuelo
// no se cancelan; sus resultados tardíos se descartan.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.stopped.Store(true)
		close(e.stopCh)
		e.transport.Disconnect()
	})
}

func (e *Engine) pollLoop() {
	ticker := time.NewTicker(unreadPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if err := e.FetchUnreadCount(context.Background()); err != nil {
				e.logger.Warn("unread poll failed", zap.Error(err))
			}
		}
	}
}

// FetchConversations reemplaza la lista en memoria al completo. Ante un
// fallo la lista degrada a vacía en lugar de romper; el error es no fatal.
func (e *Engine) FetchConversations(ctx context.Context) error {
	e.store.SetLoadingConversations(true)
	conversations, err := e.api.ListConversations(ctx)
	e.store.SetLoadingConversations(false)

	if e.stopped.Load() {
		return nil
	}
	if err != nil {
		e.logger.Warn("fetch conversations failed", zap.Error(err))
		e.store.SetConversations(nil)
		return err
	}

	e.store.SetConversations(conversations)
	return nil
}

// FetchUnreadCount trae el resumen de no leídos y lo mezcla por id en la
// lista ya cargada. Ante un fallo se conserva el estado viejo.
func (e *Engine) FetchUnreadCount(ctx context.Context) error {
	e.store.SetLoadingUnread(true)
	summary, err := e.api.UnreadSummary(ctx)
	e.store.SetLoadingUnread(false)

	if e.stopped.Load() {
		return nil
	}
	if err != nil {
		e.logger.Warn("fetch unread failed", zap.Error(err))
		return err
	}

	e.store.MergeUnread(summary)
	return nil
}

// FetchConversationMessages trae una página. La página 1 reemplaza la
// secuencia; cualquier otra se antepone (paginación hacia mensajes más
// viejos). Devuelve si quedan mensajes anteriores.
func (e *Engine) FetchConversationMessages(ctx context.Context, conversationID string, page int, lastMessageID string) (bool, error) {
	if page <= 1 {
		e.store.Open(conversationID)
	}
	e.setViewState(conversationID, ViewLoading)
	e.store.SetLoadingMessages(true)

	result, err := e.api.ConversationMessages(ctx, conversationID, page, lastMessageID)
	e.store.SetLoadingMessages(false)

	if e.stopped.Load() {
		return false, nil
	}
	if err != nil {
		e.logger.Warn("fetch messages failed",
			zap.Error(err),
			zap.String("conversation_id", conversationID),
		)
		e.setViewState(conversationID, ViewLoadedWithError)
		return false, err
	}

	if page <= 1 {
		e.store.ReplaceMessages(conversationID, result.Messages)
	} else {
		e.store.PrependMessages(conversationID, result.Messages)
	}
	e.setViewState(conversationID, ViewLoaded)
	return result.HasMore, nil
}

// SendMessage rechaza en local contenido en blanco y envíos solapados (el
// segundo se rechaza, no se encola). En éxito refresca conversaciones y no
// leídos desde el servidor; el mensaje enviado no se inserta localmente.
func (e *Engine) SendMessage(ctx context.Context, recipientID, content string) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, ErrBlankMessage
	}
	if !e.sending.CompareAndSwap(false, true) {
		return domain.Message{}, ErrSendInFlight
	}
	defer e.sending.Store(false)

	msg, err := e.api.SendMessage(ctx, recipientID, content)
	if err != nil {
		e.logger.Warn("send message failed", zap.Error(err))
		return domain.Message{}, err
	}

	e.refreshSummaries(ctx)
	return msg, nil
}

// MarkMessagesAsRead limpia el estado de no leído en el servidor y luego
// reconsulta los contadores.
func (e *Engine) MarkMessagesAsRead(ctx context.Context, conversationID string, messageIDs []string) error {
	if err := e.api.MarkMessagesAsRead(ctx, conversationID, messageIDs); err != nil {
		e.logger.Warn("mark read failed", zap.Error(err))
		return err
	}
	if err := e.FetchUnreadCount(ctx); err != nil {
		e.logger.Warn("unread refresh after mark read failed", zap.Error(err))
	}
	return nil
}

// DeleteConversation borra en el servidor y refresca la lista.
func (e *Engine) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := e.api.DeleteConversation(ctx, conversationID); err != nil {
		e.logger.Warn("delete conversation failed", zap.Error(err))
		return err
	}
	if err := e.FetchConversations(ctx); err != nil {
		e.logger.Warn("conversation refresh after delete failed", zap.Error(err))
	}
	return nil
}

// ConversationViewState devuelve el estado de la vista de una conversación.
func (e *Engine) ConversationViewState(conversationID string) ViewState {
	e.viewMu.Lock()
	defer e.viewMu.Unlock()
	return e.views[conversationID]
}

func (e *Engine) setViewState(conversationID string, state ViewState) {
	e.viewMu.Lock()
	e.views[conversationID] = state
	e.viewMu.Unlock()
}

func (e *Engine) refreshSummaries(ctx context.Context) {
	if e.stopped.Load() {
		return
	}
	if err := e.FetchConversations(ctx); err != nil {
		e.logger.Warn("conversation refresh failed", zap.Error(err))
	}
	if err := e.FetchUnreadCount(ctx); err != nil {
		e.logger.Warn("unread refresh failed", zap.Error(err))
	}
}
