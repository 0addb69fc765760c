package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"alum-messaging/internal/domain"
	"alum-messaging/internal/ws"
)

const (
	reconnectDelay    = 3 * time.Second
	maxReconnects     = 5
	directSendTimeout = 5 * time.Second
)

var (
	ErrNotConnected    = errors.New("transport not connected")
	ErrDirectSendBusy  = errors.New("direct send already pending")
	ErrDirectSendEmpty = errors.New("direct send content is empty")
)

// Transport mantiene a lo sumo una conexión websocket viva por sesión. Es
// solo un canal de señales: newMessage indica que hay algo nuevo y el motor
// reconcilia contra la API; el payload nunca se inserta en el store.
//
// La instancia se inyecta por constructor en lugar de vivir como singleton
// de proceso, para que los tests puedan crear transportes independientes.
type Transport struct {
	baseURL string
	logger  *zap.Logger

	mu           sync.Mutex
	conn         *websocket.Conn
	cancel       context.CancelFunc
	intentional  bool
	sessionToken string

	handlerMu sync.RWMutex
	handlers  []func(domain.Envelope)

	pendingMu   sync.Mutex
	pendingSend chan domain.Envelope
}

func NewTransport(baseURL string, logger *zap.Logger) *Transport {
	return &Transport{baseURL: baseURL, logger: logger}
}

// OnNewMessage registra un handler para la señal newMessage. Registrar
// contra un transporte sin conexión es válido: el handler queda guardado y
// simplemente no se dispara hasta que haya conexión.
func (t *Transport) OnNewMessage(handler func(domain.Envelope)) {
	if handler == nil {
		return
	}
	t.handlerMu.Lock()
	t.handlers = append(t.handlers, handler)
	t.handlerMu.Unlock()
}

// Connect abre la conexión para la identidad dada. Sin identidad es un
// no-op sin conexión. Si ya había una conexión se derriba primero: nunca
// hay más de una viva, y un cambio de usuario jamás reutiliza el socket.
func (t *Transport) Connect(ctx context.Context, sessionToken string) error {
	if strings.TrimSpace(sessionToken) == "" {
		return nil
	}

	t.Disconnect()

	t.mu.Lock()
	t.sessionToken = sessionToken
	t.intentional = false
	t.mu.Unlock()

	return t.dial(ctx)
}

func (t *Transport) dial(ctx context.Context) error {
	t.mu.Lock()
	token := t.sessionToken
	t.mu.Unlock()

	wsURL := strings.Replace(t.baseURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL += "/ws"

	header := http.Header{}
	header.Set("Cookie", ws.SessionCookieName+"="+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return err
	}

	readCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.conn = conn
	t.cancel = cancel
	t.mu.Unlock()

	go t.readLoop(readCtx, conn)
	return nil
}

// IsConnected informa si hay una conexión viva.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Disconnect derriba la conexión activa; es idempotente.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.intentional = true
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

// SendDirect envía un mensaje por el socket y espera la confirmación del
// servidor con un timeout fijo. Es el camino opcional; el motor usa la API
// REST por defecto.
func (t *Transport) SendDirect(ctx context.Context, recipientID, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrDirectSendEmpty
	}

	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	reply := make(chan domain.Envelope, 1)
	t.pendingMu.Lock()
	if t.pendingSend != nil {
		t.pendingMu.Unlock()
		return ErrDirectSendBusy
	}
	t.pendingSend = reply
	t.pendingMu.Unlock()
	defer func() {
		t.pendingMu.Lock()
		t.pendingSend = nil
		t.pendingMu.Unlock()
	}()

	payload, err := json.Marshal(map[string]string{
		"type":        "sendMessage",
		"recipientId": recipientID,
		"content":     content,
	})
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(directSendTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}

	select {
	case env := <-reply:
		if env.Type == domain.EventMessageError {
			return errors.New(env.Error)
		}
		return nil
	case <-time.After(directSendTimeout):
		return errors.New("direct send timed out")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Transport) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			intentional := t.intentional
			current := t.conn == conn
			if current {
				t.conn = nil
			}
			t.mu.Unlock()

			if intentional || !current {
				return
			}

			t.logger.Warn("transport connection lost", zap.Error(err))
			t.reconnect(ctx)
			return
		}

		var env domain.Envelope
		if json.Unmarshal(raw, &env) != nil {
			continue
		}

		switch env.Type {
		case domain.EventNewMessage:
			t.dispatch(env)
		case domain.EventMessageSent, domain.EventMessageError:
			t.pendingMu.Lock()
			pending := t.pendingSend
			t.pendingMu.Unlock()
			if pending != nil {
				select {
				case pending <- env:
				default:
				}
			}
		}
	}
}

// reconnect reintenta con backoff fijo y un número acotado de intentos.
// Los errores de conectividad se registran; nunca llegan al UI como
// errores bloqueantes.
func (t *Transport) reconnect(ctx context.Context) {
	for attempt := 1; attempt <= maxReconnects; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}

		t.mu.Lock()
		intentional := t.intentional
		t.mu.Unlock()
		if intentional {
			return
		}

		if err := t.dial(context.Background()); err != nil {
			t.logger.Warn("transport reconnect failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		t.logger.Info("transport reconnected", zap.Int("attempt", attempt))
		return
	}
	t.logger.Warn("transport gave up reconnecting", zap.Int("attempts", maxReconnects))
}

func (t *Transport) dispatch(env domain.Envelope) {
	t.handlerMu.RLock()
	handlers := append([]func(domain.Envelope){}, t.handlers...)
	t.handlerMu.RUnlock()
	for _, h := range handlers {
		h(env)
	}
}
