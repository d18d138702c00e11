// Package session holds the roster state core. The rendering adapter feeds
// events into Apply and executes the effects it returns; nothing here
// touches the network or the terminal.
package session

import (
	"errors"
	"fmt"
	"strings"

	"agentroom/internal/persona"
)

// ErrIndexOutOfRange reports an edit or removal aimed at a row that does not
// exist. A correctly driven UI never produces one.
var ErrIndexOutOfRange = errors.New("roster index out of range")

// State is the explicitly owned roster value. Version increases by one on
// every mutation so sync effects can be ordered by the caller if it cares.
type State struct {
	Roster  []persona.Persona
	Version uint64
}

// New seeds a state with a copy of the given roster.
func New(roster []persona.Persona) State {
	return State{Roster: cloneRoster(roster)}
}

// Event is one user or server intent.
type Event interface {
	isEvent()
}

type AgentAdded struct{}

type AgentEdited struct {
	Index int
	Field persona.Field
	Value string
}

type AgentStepped struct {
	Index int
	Field persona.Field
	Delta int
}

type AgentRemoved struct {
	Index int
}

// RosterReplaced swaps the whole roster (component load or server push).
type RosterReplaced struct {
	Agents []persona.Persona
}

type MessageSent struct {
	Text string
}

func (AgentAdded) isEvent()     {}
func (AgentEdited) isEvent()    {}
func (AgentStepped) isEvent()   {}
func (AgentRemoved) isEvent()   {}
func (RosterReplaced) isEvent() {}
func (MessageSent) isEvent()    {}

// Effect is work the adapter must carry out after a transition.
type Effect interface {
	isEffect()
}

// SyncRoster pushes the full roster. Delivery is best effort.
type SyncRoster struct {
	Agents  []persona.Persona
	Version uint64
}

// SendMessage submits the user's text to the backend.
type SendMessage struct {
	Text string
}

func (SyncRoster) isEffect()  {}
func (SendMessage) isEffect() {}

// Apply computes the next state for an event. On error the original state
// is returned unchanged along with no effects.
func Apply(state State, event Event) (State, []Effect, error) {
	switch ev := event.(type) {
	case AgentAdded:
		next := state.mutate()
		next.Roster = append(next.Roster, persona.NewDefault())
		return next, next.sync(), nil
	case AgentEdited:
		if !state.valid(ev.Index) {
			return state, nil, fmt.Errorf("edit %d: %w", ev.Index, ErrIndexOutOfRange)
		}
		updated, err := state.Roster[ev.Index].Set(ev.Field, ev.Value)
		if err != nil {
			return state, nil, err
		}
		next := state.mutate()
		next.Roster[ev.Index] = updated
		return next, next.sync(), nil
	case AgentStepped:
		if !state.valid(ev.Index) {
			return state, nil, fmt.Errorf("step %d: %w", ev.Index, ErrIndexOutOfRange)
		}
		current := state.Roster[ev.Index]
		switch ev.Field {
		case persona.FieldTalkativeness:
			current = current.StepTalkativeness(ev.Delta)
		case persona.FieldResponseLength:
			current = current.StepResponseLength(ev.Delta)
		default:
			return state, nil, fmt.Errorf("field %q has no step control", ev.Field)
		}
		next := state.mutate()
		next.Roster[ev.Index] = current
		return next, next.sync(), nil
	case AgentRemoved:
		if !state.valid(ev.Index) {
			return state, nil, fmt.Errorf("remove %d: %w", ev.Index, ErrIndexOutOfRange)
		}
		next := state.mutate()
		next.Roster = append(next.Roster[:ev.Index], next.Roster[ev.Index+1:]...)
		return next, next.sync(), nil
	case RosterReplaced:
		next := State{Roster: persona.Normalize(ev.Agents), Version: state.Version + 1}
		return next, next.sync(), nil
	case MessageSent:
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			return state, nil, nil
		}
		return state, []Effect{SendMessage{Text: text}}, nil
	default:
		return state, nil, fmt.Errorf("unsupported event %T", event)
	}
}

// Row is the rendered projection of one roster record.
type Row struct {
	Index  int
	Values map[persona.Field]string
}

// Rows rebuilds the list view from the current roster. It never looks at a
// previous rendering.
func (s State) Rows() []Row {
	rows := make([]Row, 0, len(s.Roster))
	for i, p := range s.Roster {
		values := make(map[persona.Field]string, len(persona.Fields))
		for _, field := range persona.Fields {
			values[field] = p.Get(field)
		}
		rows = append(rows, Row{Index: i, Values: values})
	}
	return rows
}

// Snapshot returns a copy of the roster safe to hand to another goroutine.
func (s State) Snapshot() []persona.Persona {
	return cloneRoster(s.Roster)
}

func (s State) valid(index int) bool {
	return index >= 0 && index < len(s.Roster)
}

func (s State) mutate() State {
	return State{Roster: cloneRoster(s.Roster), Version: s.Version + 1}
}

func (s State) sync() []Effect {
	return []Effect{SyncRoster{Agents: cloneRoster(s.Roster), Version: s.Version}}
}

func cloneRoster(roster []persona.Persona) []persona.Persona {
	out := make([]persona.Persona, len(roster))
	copy(out, roster)
	return out
}
