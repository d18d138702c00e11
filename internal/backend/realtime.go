package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"agentroom/internal/persona"
	"agentroom/internal/transcript"
)

// The realtime endpoint is a plain websocket at <base>/ws carrying JSON text
// frames of the form {"event": name, "data": payload}. Socket.IO framing is
// not spoken; such a backend needs a bridge that serves this envelope.
const (
	EventHistory        = "history"
	EventNewMessage     = "new_message"
	EventUpdateAgents   = "update_agents"
	EventUserMessage    = "user_message"
	EventToggleAutoChat = "toggle_auto_chat"

	realtimePath       = "/ws"
	realtimeWriteWait  = 10 * time.Second
	realtimeInboundCap = 256
)

// Envelope is the frame exchanged on the realtime connection.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Push is a decoded server event. Err is set on the final push when the
// connection ends.
type Push struct {
	Event   string
	History []transcript.Message
	Message transcript.Message
	Agents  []persona.Persona
	Err     error
}

// Realtime is a live connection to the backend. Writes are serialized; reads
// run on one goroutine and surface on Pushes.
type Realtime struct {
	conn   *websocket.Conn
	writeM sync.Mutex
	pushes chan Push
	done   chan struct{}
	once   sync.Once
}

// RealtimeURL maps the HTTP base URL onto the websocket endpoint.
func RealtimeURL(baseURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http", "":
		parsed.Scheme = "ws"
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + realtimePath
	return parsed.String(), nil
}

// DialRealtime opens the realtime connection for this client's session.
func (c *Client) DialRealtime(ctx context.Context) (*Realtime, error) {
	endpoint, err := RealtimeURL(c.baseURL)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set(SessionHeader, c.sessionID)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	rt := &Realtime{
		conn:   conn,
		pushes: make(chan Push, realtimeInboundCap),
		done:   make(chan struct{}),
	}
	go rt.readLoop()
	return rt, nil
}

// Pushes delivers server events in arrival order. The channel closes after
// a push carrying Err.
func (r *Realtime) Pushes() <-chan Push {
	return r.pushes
}

func (r *Realtime) UpdateAgents(agents []persona.Persona) error {
	if agents == nil {
		agents = []persona.Persona{}
	}
	return r.emit(EventUpdateAgents, agents)
}

func (r *Realtime) SendUserMessage(text, name string) error {
	return r.emit(EventUserMessage, map[string]string{"text": text, "name": name})
}

func (r *Realtime) ToggleAutoChat(enabled bool) error {
	return r.emit(EventToggleAutoChat, map[string]bool{"enabled": enabled})
}

func (r *Realtime) Close() error {
	var err error
	r.once.Do(func() {
		close(r.done)
		r.writeM.Lock()
		_ = r.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(realtimeWriteWait),
		)
		r.writeM.Unlock()
		err = r.conn.Close()
	})
	return err
}

func (r *Realtime) emit(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return err
	}
	r.writeM.Lock()
	defer r.writeM.Unlock()
	_ = r.conn.SetWriteDeadline(time.Now().Add(realtimeWriteWait))
	if err := r.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

func (r *Realtime) readLoop() {
	defer close(r.pushes)
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			select {
			case <-r.done:
				r.finish(websocket.ErrCloseSent)
			default:
				r.finish(err)
			}
			return
		}
		push, err := decodePush(data)
		if err != nil {
			// malformed frames are skipped; the stream itself is still good
			continue
		}
		select {
		case r.pushes <- push:
		case <-r.done:
			r.finish(websocket.ErrCloseSent)
			return
		}
	}
}

// finish reports the end of the stream without blocking a reader that has
// already gone away.
func (r *Realtime) finish(err error) {
	select {
	case r.pushes <- Push{Err: err}:
	default:
	}
}

func decodePush(data []byte) (Push, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Push{}, err
	}
	push := Push{Event: env.Event}
	switch env.Event {
	case EventHistory:
		if err := json.Unmarshal(env.Data, &push.History); err != nil {
			return Push{}, fmt.Errorf("decode history: %w", err)
		}
	case EventNewMessage:
		if err := json.Unmarshal(env.Data, &push.Message); err != nil {
			return Push{}, fmt.Errorf("decode new_message: %w", err)
		}
	case EventUpdateAgents:
		if err := json.Unmarshal(env.Data, &push.Agents); err != nil {
			return Push{}, fmt.Errorf("decode update_agents: %w", err)
		}
	default:
		return Push{}, fmt.Errorf("unknown event %q", env.Event)
	}
	return push, nil
}
