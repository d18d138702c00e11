package transcript

import (
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"agentroom/internal/persona"
)

const (
	RoleUser      = "user"
	RoleAgent     = "agent"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	timestampLayout = "15:04"
)

// Message is one displayed line of conversation.
type Message struct {
	Role      string `json:"role"`
	Name      string `json:"name,omitempty"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// IsAgent reports whether the message came from a persona.
func (m Message) IsAgent() bool {
	return m.Role == RoleAgent || m.Role == RoleAssistant
}

// Transcript is the ordered, append-only list of messages for the session.
type Transcript struct {
	messages []Message
	// follow is set whenever the tail moves so the view scrolls to it.
	follow bool
	now    func() time.Time
}

// New returns an empty transcript stamping with the local clock.
func New() *Transcript {
	return &Transcript{now: time.Now}
}

// Append adds a message to the tail. Content is not validated.
func (t *Transcript) Append(msg Message) Message {
	if strings.TrimSpace(msg.Timestamp) == "" {
		msg.Timestamp = t.clock().Local().Format(timestampLayout)
	}
	t.messages = append(t.messages, msg)
	t.follow = true
	return msg
}

// LoadHistory clears the transcript and appends each message in order.
func (t *Transcript) LoadHistory(msgs []Message) {
	t.messages = t.messages[:0]
	for _, msg := range msgs {
		t.Append(msg)
	}
	t.follow = true
}

// Messages returns a copy of the current transcript.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	return len(t.messages)
}

// TakeFollow reports and clears the pending scroll-to-tail request.
func (t *Transcript) TakeFollow() bool {
	follow := t.follow
	t.follow = false
	return follow
}

func (t *Transcript) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}

// EscapeAngles replaces angle brackets only. It is the minimal display
// policy for HTML output and is not a sanitizer.
func EscapeAngles(content string) string {
	return strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(content)
}

// TerminalSafe removes escape sequences so message text is always shown
// literally in a terminal.
func TerminalSafe(content string) string {
	return ansi.Strip(content)
}

// Style is the resolved presentation of a message's speaker.
type Style struct {
	Icon  string
	Color string
	Known bool
}

// Resolve looks the speaker up in the roster by exact name. Unknown names
// fall back to placeholder styling without error.
func Resolve(roster []persona.Persona, msg Message) Style {
	if !msg.IsAgent() {
		return Style{Icon: persona.PlaceholderIcon}
	}
	p, ok := persona.Find(roster, msg.Name)
	if !ok {
		return Style{Icon: persona.PlaceholderIcon}
	}
	icon := p.Icon
	if strings.TrimSpace(icon) == "" {
		icon = persona.PlaceholderIcon
	}
	return Style{Icon: icon, Color: p.Color, Known: true}
}
