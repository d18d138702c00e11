package transcript

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"agentroom/internal/persona"
)

func fixedTranscript() *Transcript {
	tr := New()
	tr.now = func() time.Time { return time.Date(2026, 3, 4, 9, 7, 0, 0, time.Local) }
	return tr
}

func TestAppendSynthesizesTimestamp(t *testing.T) {
	tr := fixedTranscript()
	got := tr.Append(Message{Role: RoleUser, Content: "hi"})
	if got.Timestamp != "09:07" {
		t.Fatalf("expected synthesized 09:07, got %q", got.Timestamp)
	}
	kept := tr.Append(Message{Role: RoleUser, Content: "again", Timestamp: "23:59"})
	if kept.Timestamp != "23:59" {
		t.Fatalf("expected provided timestamp kept, got %q", kept.Timestamp)
	}
	if !tr.TakeFollow() {
		t.Fatalf("expected append to request scroll to tail")
	}
	if tr.TakeFollow() {
		t.Fatalf("expected follow flag to clear after take")
	}
}

func TestLoadHistoryReplaces(t *testing.T) {
	tr := fixedTranscript()
	tr.Append(Message{Role: RoleUser, Content: "old"})
	tr.LoadHistory([]Message{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Name: "創造担当", Content: "b"},
	})
	msgs := tr.Messages()
	if len(msgs) != 2 || msgs[0].Content != "a" || msgs[1].Content != "b" {
		t.Fatalf("unexpected history: %+v", msgs)
	}
}

func TestEscapeAnglesOnly(t *testing.T) {
	got := EscapeAngles(`<b>hi</b> & "q"`)
	if got != `&lt;b&gt;hi&lt;/b&gt; & "q"` {
		t.Fatalf("unexpected escape: %q", got)
	}
}

func TestTerminalSafeStripsSequences(t *testing.T) {
	got := TerminalSafe("\x1b[1m<b>hi</b>\x1b[0m")
	if got != "<b>hi</b>" {
		t.Fatalf("expected literal markup text, got %q", got)
	}
}

func TestResolveFallsBackSilently(t *testing.T) {
	roster := persona.Defaults()
	style := Resolve(roster, Message{Role: RoleAgent, Name: "かしゆか"})
	if style.Known || style.Icon != persona.PlaceholderIcon {
		t.Fatalf("expected placeholder styling, got %+v", style)
	}
	style = Resolve(roster, Message{Role: RoleAgent, Name: roster[1].Name})
	if !style.Known || style.Color != roster[1].Color {
		t.Fatalf("expected persona styling, got %+v", style)
	}
}

func TestExportHTMLEscapesContent(t *testing.T) {
	var buf bytes.Buffer
	msgs := []Message{{Role: RoleAgent, Name: "かしゆか", Content: "<b>hi</b>", Timestamp: "10:00"}}
	if err := ExportHTML(&buf, msgs, persona.Defaults()); err != nil {
		t.Fatalf("export: %v", err)
	}
	html := buf.String()
	if strings.Contains(html, "<b>hi</b>") {
		t.Fatalf("expected content escaped, got %s", html)
	}
	if !strings.Contains(html, "&lt;b&gt;hi&lt;/b&gt;") {
		t.Fatalf("expected literal escaped text in output")
	}
}

func TestRevealQueueOrdersAndCancels(t *testing.T) {
	q := NewRevealQueue(10 * time.Millisecond)
	step, armed := q.Schedule([]Message{{Content: "m1"}, {Content: "m2"}})
	if !armed {
		t.Fatalf("expected first schedule to arm a step")
	}
	if _, again := q.Schedule([]Message{{Content: "m3"}}); again {
		t.Fatalf("expected busy queue not to arm a second timer")
	}
	var order []string
	for {
		msg, ok, more := q.Next(step)
		if !ok {
			break
		}
		order = append(order, msg.Content)
		if !more {
			break
		}
	}
	if strings.Join(order, ",") != "m1,m2,m3" {
		t.Fatalf("unexpected reveal order: %v", order)
	}

	step, _ = q.Schedule([]Message{{Content: "late"}})
	if dropped := q.Cancel(); dropped != 1 {
		t.Fatalf("expected one dropped message, got %d", dropped)
	}
	if _, ok, _ := q.Next(step); ok {
		t.Fatalf("expected cancelled step to be ignored")
	}
}
