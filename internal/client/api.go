package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"alum-messaging/internal/domain"
	"alum-messaging/internal/ws"
)

// API es la superficie REST que consume el motor de sincronización. Está
// detrás de una interfaz para poder instanciar dobles en tests.
type API interface {
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
	UnreadSummary(ctx context.Context) (domain.UnreadSummary, error)
	ConversationMessages(ctx context.Context, conversationID string, page int, lastMessageID string) (domain.MessagePage, error)
	SendMessage(ctx context.Context, recipientID, content string) (domain.Message, error)
	MarkMessagesAsRead(ctx context.Context, conversationID string, messageIDs []string) error
	DeleteConversation(ctx context.Context, conversationID string) error
}

// APIError es una respuesta no-2xx del servidor de mensajería.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.StatusCode)
}

// HTTPAPI habla con los endpoints REST llevando la credencial de sesión en
// la cookie correspondiente.
type HTTPAPI struct {
	baseURL      string
	sessionToken string
	httpClient   *http.Client
	pageSize     int
}

func NewHTTPAPI(baseURL, sessionToken string) *HTTPAPI {
	return &HTTPAPI{
		baseURL:      baseURL,
		sessionToken: sessionToken,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		pageSize:     20,
	}
}

func (a *HTTPAPI) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	var out struct {
		Conversations []domain.Conversation `json:"conversations"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/messages/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

func (a *HTTPAPI) UnreadSummary(ctx context.Context) (domain.UnreadSummary, error) {
	var out domain.UnreadSummary
	if err := a.do(ctx, http.MethodGet, "/api/messages/unread", nil, &out); err != nil {
		return domain.UnreadSummary{}, err
	}
	return out, nil
}

func (a *HTTPAPI) ConversationMessages(ctx context.Context, conversationID string, page int, lastMessageID string) (domain.MessagePage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(a.pageSize))
	if lastMessageID != "" {
		q.Set("lastMessageId", lastMessageID)
	}
	path := "/api/messages/conversation/" + url.PathEscape(conversationID) + "?" + q.Encode()

	var out domain.MessagePage
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return domain.MessagePage{}, err
	}
	return out, nil
}

func (a *HTTPAPI) SendMessage(ctx context.Context, recipientID, content string) (domain.Message, error) {
	body := map[string]string{"recipientId": recipientID, "content": content}
	var out struct {
		Message domain.Message `json:"message"`
	}
	if err := a.do(ctx, http.MethodPost, "/api/messages/send", body, &out); err != nil {
		return domain.Message{}, err
	}
	return out.Message, nil
}

func (a *HTTPAPI) MarkMessagesAsRead(ctx context.Context, conversationID string, messageIDs []string) error {
	body := map[string]interface{}{
		"conversationId": conversationID,
		"messageIds":     messageIDs,
	}
	return a.do(ctx, http.MethodPatch, "/api/messages/mark-read", body, nil)
}

func (a *HTTPAPI) DeleteConversation(ctx context.Context, conversationID string) error {
	path := "/api/messages/conversation/" + url.PathEscape(conversationID)
	return a.do(ctx, http.MethodDelete, path, nil, nil)
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: ws.SessionCookieName, Value: a.sessionToken})

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &APIError{StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
