// Package backend is the client side of the chat server's HTTP and
// websocket contract. Every call is attempted once; callers decide how to
// degrade on failure.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"agentroom/internal/persona"
	"agentroom/internal/transcript"
)

const (
	SessionHeader  = "X-Agentroom-Session"
	defaultTimeout = 120 * time.Second
	errorBodyLimit = 240
)

// HTTPError is a non-2xx reply.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client talks to one backend over HTTP.
type Client struct {
	baseURL   string
	sessionID string
	http      *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithSessionID pins the session identity instead of generating one.
func WithSessionID(id string) Option {
	return func(c *Client) {
		if strings.TrimSpace(id) != "" {
			c.sessionID = id
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		sessionID: uuid.NewString(),
		http:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) SessionID() string {
	return c.sessionID
}

// Ack is the generic acknowledgement shape.
type Ack struct {
	OK    bool   `json:"ok"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error,omitempty"`
}

// UpdateAgents replaces the backend's active roster with the full list.
func (c *Client) UpdateAgents(ctx context.Context, agents []persona.Persona) error {
	if agents == nil {
		agents = []persona.Persona{}
	}
	return c.postJSON(ctx, "/api/update_agents", agents, nil)
}

type sendMessageRequest struct {
	Text  string `json:"text"`
	Name  string `json:"name"`
	Turns int    `json:"turns,omitempty"`
}

// SendResult is the reply to a user turn.
type SendResult struct {
	OK        bool                 `json:"ok"`
	Generated []transcript.Message `json:"generated"`
	Error     string               `json:"error,omitempty"`
}

// SendMessage submits a user turn. turns bounds how many agent replies the
// backend may generate; zero leaves it to the backend.
func (c *Client) SendMessage(ctx context.Context, text, name string, turns int) (SendResult, error) {
	var out SendResult
	err := c.postJSON(ctx, "/api/send_message", sendMessageRequest{Text: text, Name: name, Turns: turns}, &out)
	if err != nil {
		return SendResult{}, err
	}
	if !out.OK && strings.TrimSpace(out.Error) != "" {
		return out, fmt.Errorf("send_message: %s", out.Error)
	}
	return out, nil
}

type chatRequest struct {
	Message string            `json:"message"`
	Agents  []persona.Persona `json:"agents"`
}

type chatReply struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type chatResponse struct {
	Replies []chatReply `json:"replies"`
	Error   string      `json:"error,omitempty"`
}

// Chat is the stateless variant: the roster travels with every message and
// the replies come back in one batch.
func (c *Client) Chat(ctx context.Context, text string, agents []persona.Persona) ([]transcript.Message, error) {
	var out chatResponse
	if err := c.postJSON(ctx, "/chat", chatRequest{Message: text, Agents: agents}, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Error) != "" {
		return nil, fmt.Errorf("chat: %s", out.Error)
	}
	msgs := make([]transcript.Message, 0, len(out.Replies))
	for _, reply := range out.Replies {
		msgs = append(msgs, transcript.Message{Role: transcript.RoleAgent, Name: reply.Name, Content: reply.Text})
	}
	return msgs, nil
}

// History fetches the server-held transcript.
func (c *Client) History(ctx context.Context) ([]transcript.Message, error) {
	var out []transcript.Message
	if err := c.getJSON(ctx, "/api/history", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, path, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	req.Header.Set(SessionHeader, c.sessionID)
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", req.Method, path, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{
			Method: req.Method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   compactSingleLine(string(payload), errorBodyLimit),
		}
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func escapePath(name string) string {
	return url.PathEscape(name)
}

func compactSingleLine(text string, limit int) string {
	compact := strings.Join(strings.Fields(text), " ")
	if limit <= 0 || len(compact) <= limit {
		return compact
	}
	if limit <= 3 {
		return compact[:limit]
	}
	return compact[:limit-3] + "..."
}
