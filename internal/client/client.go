// Package client talks to a chat server over its REST API and websocket.
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
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/dealchat/internal/types"
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	HTTPClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type CreateChatParams struct {
	ProjectId  *uuid.UUID `json:"projectId,omitempty"`
	MlsId      *string    `json:"mlsId,omitempty"`
	PropertyId *string    `json:"propertyId,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.ToLower(http.StatusText(resp.StatusCode))
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) CreateMessage(ctx context.Context, chatId, senderId uuid.UUID, content string) (types.Message, error) {
	var msg types.Message
	err := c.do(ctx, http.MethodPost, "/api/messages", map[string]string{
		"chatId":   chatId.String(),
		"senderId": senderId.String(),
		"content":  content,
	}, &msg)
	return msg, err
}

// ListMessages fetches one page, newest first. A zero page or limit uses the
// server default.
func (c *Client) ListMessages(ctx context.Context, chatId *uuid.UUID, page, limit int) (types.Page[types.Message], error) {
	q := url.Values{}
	if chatId != nil {
		q.Set("chatId", chatId.String())
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	path := "/api/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var p types.Page[types.Message]
	err := c.do(ctx, http.MethodGet, path, nil, &p)
	return p, err
}

func (c *Client) CreateChat(ctx context.Context, params CreateChatParams) (types.ChatRoom, error) {
	var room types.ChatRoom
	err := c.do(ctx, http.MethodPost, "/api/group-chats", params, &room)
	return room, err
}

func (c *Client) AddUser(ctx context.Context, chatId, userId uuid.UUID) (types.Membership, error) {
	var m types.Membership
	err := c.do(ctx, http.MethodPost, "/api/group-chats/"+chatId.String()+"/users",
		map[string]string{"userId": userId.String()}, &m)
	return m, err
}

func (c *Client) GetChat(ctx context.Context, chatId uuid.UUID) (types.ChatRoom, error) {
	var room types.ChatRoom
	err := c.do(ctx, http.MethodGet, "/api/group-chats/"+chatId.String(), nil, &room)
	return room, err
}

func (c *Client) ListChats(ctx context.Context) ([]types.ChatRoom, error) {
	var rooms []types.ChatRoom
	err := c.do(ctx, http.MethodGet, "/api/group-chats", nil, &rooms)
	return rooms, err
}

// WebsocketURL derives the websocket endpoint from the REST base URL.
func (c *Client) WebsocketURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}
