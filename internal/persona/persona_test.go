package persona

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaultsCarryPlaceholders(t *testing.T) {
	roster := Defaults()
	if len(roster) != 3 {
		t.Fatalf("expected 3 seeded personas, got %d", len(roster))
	}
	for _, p := range roster {
		if p.Icon != PlaceholderIcon {
			t.Fatalf("expected placeholder icon for %q, got %q", p.Name, p.Icon)
		}
		if p.Talkativeness != DefaultTalkativeness || p.ResponseLength != DefaultResponseLength {
			t.Fatalf("unexpected tuning defaults for %q: %v/%d", p.Name, p.Talkativeness, p.ResponseLength)
		}
	}
}

func TestSetPassesOutOfRangeValuesThrough(t *testing.T) {
	p := NewDefault()
	next, err := p.Set(FieldTalkativeness, "7.5")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if next.Talkativeness != 7.5 {
		t.Fatalf("expected unclamped 7.5, got %v", next.Talkativeness)
	}
	next, err = next.Set(FieldResponseLength, "2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if next.ResponseLength != 2 {
		t.Fatalf("expected unclamped 2, got %d", next.ResponseLength)
	}
}

func TestSetRejectsNonNumeric(t *testing.T) {
	p := NewDefault()
	next, err := p.Set(FieldTalkativeness, "lots")
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if next.Talkativeness != p.Talkativeness {
		t.Fatalf("expected talkativeness unchanged on error")
	}
	for _, raw := range []string{"NaN", "Inf", "+Inf", "-inf"} {
		next, err := p.Set(FieldTalkativeness, raw)
		if err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
		if next.Talkativeness != p.Talkativeness {
			t.Fatalf("expected talkativeness unchanged after %q, got %v", raw, next.Talkativeness)
		}
	}
}

func TestStepControlsClamp(t *testing.T) {
	p := NewDefault()
	for i := 0; i < 40; i++ {
		p = p.StepTalkativeness(1)
	}
	if p.Talkativeness != MaxTalkativeness {
		t.Fatalf("expected clamp at %v, got %v", MaxTalkativeness, p.Talkativeness)
	}
	for i := 0; i < 40; i++ {
		p = p.StepTalkativeness(-1)
	}
	if p.Talkativeness != MinTalkativeness {
		t.Fatalf("expected clamp at %v, got %v", MinTalkativeness, p.Talkativeness)
	}
	p = p.StepResponseLength(-100)
	if p.ResponseLength != MinResponseLength {
		t.Fatalf("expected clamp at %d, got %d", MinResponseLength, p.ResponseLength)
	}
	p = p.StepResponseLength(100)
	if p.ResponseLength != MaxResponseLength {
		t.Fatalf("expected clamp at %d, got %d", MaxResponseLength, p.ResponseLength)
	}
}

func TestFindByExactName(t *testing.T) {
	roster := Defaults()
	if _, ok := Find(roster, "創造担当"); !ok {
		t.Fatalf("expected exact match")
	}
	if _, ok := Find(roster, "創造"); ok {
		t.Fatalf("did not expect prefix match")
	}
}

func TestDecodeDefaultsOnlyMissingNumbers(t *testing.T) {
	var agents []Persona
	raw := `[{"name":"quiet","talkativeness":0,"response_length":0},{"name":"bare"}]`
	if err := json.Unmarshal([]byte(raw), &agents); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if agents[0].Talkativeness != 0 || agents[0].ResponseLength != 0 {
		t.Fatalf("explicit zeros must be kept, got %v/%d", agents[0].Talkativeness, agents[0].ResponseLength)
	}
	if agents[1].Talkativeness != DefaultTalkativeness || agents[1].ResponseLength != DefaultResponseLength {
		t.Fatalf("missing values must default, got %v/%d", agents[1].Talkativeness, agents[1].ResponseLength)
	}

	var fromYAML []Persona
	if err := yaml.Unmarshal([]byte("- name: quiet\n  talkativeness: 0\n- name: bare\n"), &fromYAML); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if fromYAML[0].Talkativeness != 0 {
		t.Fatalf("explicit yaml zero must be kept, got %v", fromYAML[0].Talkativeness)
	}
	if fromYAML[1].ResponseLength != DefaultResponseLength {
		t.Fatalf("missing yaml value must default, got %d", fromYAML[1].ResponseLength)
	}
}

func TestNormalizeKeepsNumbers(t *testing.T) {
	out := Normalize([]Persona{{Name: "quiet", Talkativeness: 0, ResponseLength: 0}})
	if out[0].Talkativeness != 0 || out[0].ResponseLength != 0 {
		t.Fatalf("normalize must not rewrite numbers, got %v/%d", out[0].Talkativeness, out[0].ResponseLength)
	}
	if out[0].Icon != PlaceholderIcon || out[0].Color != DefaultColor {
		t.Fatalf("expected presentation defaults, got %q/%q", out[0].Icon, out[0].Color)
	}
}
