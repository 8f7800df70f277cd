// Package chatapi is a client for the companion backend's chat REST API.
// Every call carries the end user's bearer token; the backend enforces
// permissions.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/campus-agents/internal/types"
)

// DefaultTimeout bounds one backend call.
const DefaultTimeout = 15 * time.Second

// Error is a failed backend call. Message is safe to show to callers.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string { return e.Message }

// Client calls /api/chat endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. A nil httpClient gets one with DefaultTimeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ConversationList is one page of the user's conversations.
type ConversationList struct {
	Conversations []map[string]any `json:"conversations"`
	Total         *int             `json:"total,omitempty"`
}

// ListConversations returns community and private conversations.
func (c *Client) ListConversations(ctx context.Context, token string, limit, offset int) (ConversationList, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var out ConversationList
	err := c.do(ctx, http.MethodGet, "/api/chat/conversations", q, token, nil, &out, "List conversations")
	if out.Conversations == nil {
		out.Conversations = []map[string]any{}
	}
	return out, err
}

// Conversation returns conversation metadata.
func (c *Client) Conversation(ctx context.Context, token, conversationID string) (map[string]any, error) {
	var out struct {
		Conversation map[string]any `json:"conversation"`
	}
	err := c.do(ctx, http.MethodGet, "/api/chat/conversations/"+url.PathEscape(conversationID), nil, token, nil, &out, "Get conversation")
	if out.Conversation == nil {
		out.Conversation = map[string]any{}
	}
	return out.Conversation, err
}

// Messages returns up to limit messages, optionally before a message id.
func (c *Client) Messages(ctx context.Context, token, conversationID string, limit int, before string) ([]types.ChatMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if before != "" {
		q.Set("before", before)
	}
	var out struct {
		Messages []types.ChatMessage `json:"messages"`
	}
	err := c.do(ctx, http.MethodGet, "/api/chat/conversations/"+url.PathEscape(conversationID)+"/messages", q, token, nil, &out, "Get messages")
	return out.Messages, err
}

// SendMessage posts a message as the token's user.
func (c *Client) SendMessage(ctx context.Context, token, conversationID, content string) (map[string]any, error) {
	var out struct {
		Message map[string]any `json:"message"`
	}
	body := map[string]string{"content": content}
	err := c.do(ctx, http.MethodPost, "/api/chat/conversations/"+url.PathEscape(conversationID)+"/messages", nil, token, body, &out, "Send message")
	return out.Message, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body, out any, op string) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	var envelope struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &envelope)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &Error{StatusCode: resp.StatusCode, Message: "Unauthorized: invalid or expired user token"}
	case resp.StatusCode == http.StatusForbidden:
		return &Error{StatusCode: resp.StatusCode, Message: "Forbidden: access denied"}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg := envelope.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg}
	case envelope.Success != nil && !*envelope.Success:
		msg := envelope.Error
		if msg == "" {
			msg = op + " failed"
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	if len(raw) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
