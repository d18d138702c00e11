package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"agentroom/internal/persona"
)

func TestUpdateAgentsSendsFullRoster(t *testing.T) {
	var got []persona.Persona
	var session string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/update_agents" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		session = r.Header.Get(SessionHeader)
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithSessionID("sess-1"))
	roster := persona.Defaults()
	if err := client.UpdateAgents(context.Background(), roster); err != nil {
		t.Fatalf("update agents: %v", err)
	}
	if len(got) != len(roster) || got[2].Name != roster[2].Name {
		t.Fatalf("unexpected roster on the wire: %+v", got)
	}
	if session != "sess-1" {
		t.Fatalf("expected session header, got %q", session)
	}
}

func TestSendMessageDecodesGenerated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "hello" || body["name"] != "me" || body["turns"] != float64(2) {
			t.Errorf("unexpected body: %v", body)
		}
		_, _ = io.WriteString(w, `{"ok":true,"generated":[{"role":"assistant","name":"a","content":"m1"},{"role":"assistant","name":"b","content":"m2"}]}`)
	}))
	defer srv.Close()

	result, err := NewClient(srv.URL).SendMessage(context.Background(), "hello", "me", 2)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(result.Generated) != 2 || result.Generated[0].Content != "m1" || result.Generated[1].Content != "m2" {
		t.Fatalf("unexpected generated: %+v", result.Generated)
	}
}

func TestChatVariantMapsReplies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Message != "q" || len(body.Agents) != 3 {
			t.Errorf("unexpected chat body: %+v", body)
		}
		_, _ = io.WriteString(w, `{"replies":[{"name":"創造担当","text":"idea"}]}`)
	}))
	defer srv.Close()

	msgs, err := NewClient(srv.URL).Chat(context.Background(), "q", persona.Defaults())
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Name != "創造担当" || msgs[0].Content != "idea" || !msgs[0].IsAgent() {
		t.Fatalf("unexpected replies: %+v", msgs)
	}
}

func TestChatVariantSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":"model offline"}`)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Chat(context.Background(), "q", nil); err == nil || !strings.Contains(err.Error(), "model offline") {
		t.Fatalf("expected server error surfaced, got %v", err)
	}
}

func TestNon2xxIsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).History(context.Background())
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Status != http.StatusInternalServerError || httpErr.Path != "/api/history" {
		t.Fatalf("unexpected http error: %+v", httpErr)
	}
}

func TestMalformedJSONIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not-json`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).History(context.Background())
	if err == nil || !strings.Contains(err.Error(), "decode /api/history") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestListComponentsAcceptsBareNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `["plain",{"name":"rich","author":"ao","uploaded_at":"2026-01-02"}]`)
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL).ListComponents(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].Name != "plain" || items[1].Author != "ao" || items[1].UploadedAt != "2026-01-02" {
		t.Fatalf("unexpected catalog: %+v", items)
	}
}

func TestGetComponentFallsBackToPathForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/get_component":
			http.NotFound(w, r)
		case "/api/component/team one":
			_, _ = io.WriteString(w, `{"agents":[{"name":"x","system":"y"}]}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	bundle, err := NewClient(srv.URL).GetComponent(context.Background(), "team one")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if bundle.Name != "team one" || len(bundle.Agents) != 1 {
		t.Fatalf("unexpected bundle: %+v", bundle)
	}
}

func TestUploadComponentFileIsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		if r.FormValue("name") != "team" || header.Filename != "team.json" || string(content) != `{"agents":[]}` {
			t.Errorf("unexpected upload %q %q %q", r.FormValue("name"), header.Filename, content)
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	ack, err := NewClient(srv.URL).UploadComponentFile(context.Background(), "team", "team.json", strings.NewReader(`{"agents":[]}`))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !ack.OK || ack.Name != "team" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
}

func TestComponentAckFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":false,"error":"name taken"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.UploadComponent(context.Background(), "team", Bundle{}); err == nil || !strings.Contains(err.Error(), "name taken") {
		t.Fatalf("expected upload error, got %v", err)
	}
	if _, err := client.SaveComponent(context.Background(), "team"); err == nil || !strings.Contains(err.Error(), "name taken") {
		t.Fatalf("expected save error, got %v", err)
	}
	if _, err := client.UploadComponentFile(context.Background(), "team", "team.json", strings.NewReader("{}")); err == nil {
		t.Fatalf("expected file upload error")
	}
}
