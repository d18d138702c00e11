package persona

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	PlaceholderIcon = "/static/img/placeholder.png"
	DefaultColor    = "#01cdfe"

	MinTalkativeness     = 0.1
	MaxTalkativeness     = 3.0
	DefaultTalkativeness = 1.0
	TalkativenessStep    = 0.1

	MinResponseLength     = 10
	MaxResponseLength     = 300
	DefaultResponseLength = 100
	ResponseLengthStep    = 10
)

// Persona is a configured chat participant. The client owns the record and
// mirrors the whole roster to the backend on every change.
type Persona struct {
	Name           string  `json:"name" yaml:"name"`
	System         string  `json:"system" yaml:"system"`
	Icon           string  `json:"icon,omitempty" yaml:"icon,omitempty"`
	Color          string  `json:"color,omitempty" yaml:"color,omitempty"`
	Talkativeness  float64 `json:"talkativeness" yaml:"talkativeness"`
	ResponseLength int     `json:"response_length" yaml:"response_length"`
}

// Field names one editable column of a persona row.
type Field string

const (
	FieldName           Field = "name"
	FieldSystem         Field = "system"
	FieldIcon           Field = "icon"
	FieldColor          Field = "color"
	FieldTalkativeness  Field = "talkativeness"
	FieldResponseLength Field = "response_length"
)

// Fields lists the editable fields in display order.
var Fields = []Field{
	FieldName,
	FieldSystem,
	FieldIcon,
	FieldColor,
	FieldTalkativeness,
	FieldResponseLength,
}

// Defaults returns the roster a fresh session starts with.
func Defaults() []Persona {
	return []Persona{
		withDefaults(Persona{
			Name:   "ロジック担当",
			System: "あなたは厳密な論理展開を好む助言者。前提を明示化し、手順で簡潔に答える。",
			Color:  "#01cdfe",
		}),
		withDefaults(Persona{
			Name:   "創造担当",
			System: "あなたは発想の触媒。比喩と連想で3案を短く示す。",
			Color:  "#ff71ce",
		}),
		withDefaults(Persona{
			Name:   "批評担当",
			System: "あなたは建設的な批評家。リスク・反例・落とし穴を3点で述べる。",
			Color:  "#ffd166",
		}),
	}
}

// NewDefault is the generic assistant appended by the "add agent" action.
func NewDefault() Persona {
	return withDefaults(Persona{
		Name:   "新しいエージェント",
		System: "あなたは有能なアシスタントです。",
	})
}

func withDefaults(p Persona) Persona {
	p = fillPresentation(p)
	if p.Talkativeness == 0 {
		p.Talkativeness = DefaultTalkativeness
	}
	if p.ResponseLength == 0 {
		p.ResponseLength = DefaultResponseLength
	}
	return p
}

func fillPresentation(p Persona) Persona {
	if strings.TrimSpace(p.Icon) == "" {
		p.Icon = PlaceholderIcon
	}
	if strings.TrimSpace(p.Color) == "" {
		p.Color = DefaultColor
	}
	return p
}

// personaFields has Persona's fields without its decode methods.
type personaFields Persona

func decodeBase() personaFields {
	return personaFields{Talkativeness: DefaultTalkativeness, ResponseLength: DefaultResponseLength}
}

// UnmarshalJSON defaults the tuning values only when the keys are missing.
// An explicit value, zero included, is kept as sent.
func (p *Persona) UnmarshalJSON(data []byte) error {
	decoded := decodeBase()
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*p = Persona(decoded)
	return nil
}

func (p *Persona) UnmarshalYAML(value *yaml.Node) error {
	decoded := decodeBase()
	if err := value.Decode(&decoded); err != nil {
		return err
	}
	*p = Persona(decoded)
	return nil
}

// Normalize fills the icon and color of records that arrive from a
// component bundle or a server push. Numeric values are kept as-is; missing
// ones were already defaulted while decoding.
func Normalize(agents []Persona) []Persona {
	out := make([]Persona, len(agents))
	for i, p := range agents {
		out[i] = fillPresentation(p)
	}
	return out
}

// Get returns the display value of a field.
func (p Persona) Get(field Field) string {
	switch field {
	case FieldName:
		return p.Name
	case FieldSystem:
		return p.System
	case FieldIcon:
		return p.Icon
	case FieldColor:
		return p.Color
	case FieldTalkativeness:
		return strconv.FormatFloat(p.Talkativeness, 'f', -1, 64)
	case FieldResponseLength:
		return strconv.Itoa(p.ResponseLength)
	default:
		return ""
	}
}

// Set assigns a field from its text form. Numeric values are passed through
// unclamped; only the stepping controls enforce the ranges.
func (p Persona) Set(field Field, value string) (Persona, error) {
	switch field {
	case FieldName:
		p.Name = value
	case FieldSystem:
		p.System = value
	case FieldIcon:
		p.Icon = value
	case FieldColor:
		p.Color = value
	case FieldTalkativeness:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return p, fmt.Errorf("talkativeness %q: %w", value, err)
		}
		if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return p, fmt.Errorf("talkativeness %q: not a finite number", value)
		}
		p.Talkativeness = parsed
	case FieldResponseLength:
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return p, fmt.Errorf("response_length %q: %w", value, err)
		}
		p.ResponseLength = parsed
	default:
		return p, fmt.Errorf("unknown persona field %q", field)
	}
	return p, nil
}

// StepTalkativeness moves talkativeness by delta steps within its range.
func (p Persona) StepTalkativeness(delta int) Persona {
	next := p.Talkativeness + float64(delta)*TalkativenessStep
	// keep one decimal so repeated steps do not drift
	next = float64(int(next*10+0.5*sign(next))) / 10
	p.Talkativeness = clampFloat(next, MinTalkativeness, MaxTalkativeness)
	return p
}

// StepResponseLength moves response_length by delta steps within its range.
func (p Persona) StepResponseLength(delta int) Persona {
	p.ResponseLength = clampInt(p.ResponseLength+delta*ResponseLengthStep, MinResponseLength, MaxResponseLength)
	return p
}

// Find looks a persona up by exact name. The first match wins since names
// are not unique.
func Find(roster []Persona, name string) (Persona, bool) {
	for _, p := range roster {
		if p.Name == name {
			return p, true
		}
	}
	return Persona{}, false
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func clampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
