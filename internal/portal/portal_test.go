package portal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"agentroom/internal/backend"
	"agentroom/internal/persona"
)

type fakeStore struct {
	list      []backend.ComponentInfo
	listErr   error
	bundles   map[string]backend.Bundle
	installed []persona.Persona
	uploads   map[string][]byte
	deleted   []string
	calls     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{bundles: map[string]backend.Bundle{}, uploads: map[string][]byte{}}
}

func (f *fakeStore) ListComponents(context.Context) ([]backend.ComponentInfo, error) {
	f.calls++
	return f.list, f.listErr
}

func (f *fakeStore) GetComponent(_ context.Context, name string) (backend.Bundle, error) {
	f.calls++
	bundle, ok := f.bundles[name]
	if !ok {
		return backend.Bundle{}, errors.New("missing")
	}
	return bundle, nil
}

func (f *fakeStore) UploadComponent(_ context.Context, name string, bundle backend.Bundle) (backend.Ack, error) {
	f.calls++
	f.bundles[name] = bundle
	f.list = append(f.list, backend.ComponentInfo{Name: name})
	return backend.Ack{OK: true, Name: name}, nil
}

func (f *fakeStore) UploadComponentFile(_ context.Context, name, filename string, content io.Reader) (backend.Ack, error) {
	f.calls++
	data, _ := io.ReadAll(content)
	f.uploads[filename] = data
	f.list = append(f.list, backend.ComponentInfo{Name: name})
	return backend.Ack{OK: true, Name: name}, nil
}

func (f *fakeStore) SaveComponent(_ context.Context, name string) (backend.Ack, error) {
	f.calls++
	f.list = append(f.list, backend.ComponentInfo{Name: name})
	return backend.Ack{OK: true, Name: name}, nil
}

func (f *fakeStore) DeleteComponent(_ context.Context, name string) error {
	f.calls++
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeStore) UpdateAgents(_ context.Context, agents []persona.Persona) error {
	f.calls++
	f.installed = agents
	return nil
}

func TestListFailureYieldsSinglePlaceholder(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("connection refused")
	rows := New(store, nil).List(context.Background())
	if len(rows) != 1 || !rows[0].Placeholder || rows[0].Label() != LoadFailedLabel {
		t.Fatalf("expected one placeholder row, got %+v", rows)
	}
}

func TestListEmptyYieldsSinglePlaceholder(t *testing.T) {
	rows := New(newFakeStore(), nil).List(context.Background())
	if len(rows) != 1 || !rows[0].Placeholder {
		t.Fatalf("expected one placeholder row, got %+v", rows)
	}
}

func TestInstallPushesAgents(t *testing.T) {
	store := newFakeStore()
	store.bundles["team"] = backend.Bundle{Agents: []persona.Persona{{Name: "x", System: "y"}}}
	_, installed, err := New(store, nil).Install(context.Background(), "team")
	if err != nil || !installed {
		t.Fatalf("expected install, got %v %v", installed, err)
	}
	if len(store.installed) != 1 || store.installed[0].Name != "x" {
		t.Fatalf("unexpected installed roster: %+v", store.installed)
	}
}

func TestInstallPushesExplicitZerosUnchanged(t *testing.T) {
	var bundle backend.Bundle
	raw := `{"name":"quiet","agents":[{"name":"mute","system":"s","talkativeness":0,"response_length":0}]}`
	if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
		t.Fatal(err)
	}
	store := newFakeStore()
	store.bundles["quiet"] = bundle
	got, installed, err := New(store, nil).Install(context.Background(), "quiet")
	if err != nil || !installed {
		t.Fatalf("expected install, got %v %v", installed, err)
	}
	if store.installed[0].Talkativeness != 0 || store.installed[0].ResponseLength != 0 {
		t.Fatalf("expected zeros pushed unchanged, got %+v", store.installed[0])
	}
	if got.Agents[0].Talkativeness != 0 {
		t.Fatalf("expected returned bundle to keep 0, got %v", got.Agents[0].Talkativeness)
	}
}

func TestInstallWithoutAgentsIsSilentNoop(t *testing.T) {
	store := newFakeStore()
	store.bundles["empty"] = backend.Bundle{}
	_, installed, err := New(store, nil).Install(context.Background(), "empty")
	if err != nil || installed {
		t.Fatalf("expected silent no-op, got %v %v", installed, err)
	}
	if store.installed != nil {
		t.Fatalf("expected no roster push")
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	store := newFakeStore()
	p := New(store, nil)
	if _, err := p.Delete(context.Background(), "team", func(string) bool { return false }); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if store.calls != 0 {
		t.Fatalf("expected no backend call without confirmation, got %d", store.calls)
	}
	if _, err := p.Delete(context.Background(), "team", func(string) bool { return true }); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "team" {
		t.Fatalf("unexpected deletes: %v", store.deleted)
	}
}

func TestSaveRefreshesCatalog(t *testing.T) {
	store := newFakeStore()
	saved, err := New(store, nil).Save(context.Background(), "mine", backend.Bundle{Agents: persona.Defaults()})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Name != "mine" || len(saved.Rows) != 1 || saved.Rows[0].Name != "mine" {
		t.Fatalf("unexpected saved result: %+v", saved)
	}
}

func TestUploadConvertsYAMLAndJSONC(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "crew.yaml")
	if err := os.WriteFile(yamlPath, []byte("agents:\n  - name: a\n    system: b\n    talkativeness: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	jsoncPath := filepath.Join(dir, "band.jsonc")
	if err := os.WriteFile(jsoncPath, []byte("{\n// comment\n\"agents\": [{\"name\": \"c\",},],\n}"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newFakeStore()
	p := New(store, nil)
	saved, err := p.Upload(context.Background(), "", yamlPath)
	if err != nil {
		t.Fatalf("upload yaml: %v", err)
	}
	if saved.Name != "crew" {
		t.Fatalf("expected name from file stem, got %q", saved.Name)
	}
	var bundle backend.Bundle
	if err := json.Unmarshal(store.uploads["crew.json"], &bundle); err != nil {
		t.Fatalf("expected converted json upload: %v", err)
	}
	if len(bundle.Agents) != 1 || bundle.Agents[0].Talkativeness != 2 {
		t.Fatalf("unexpected converted bundle: %+v", bundle)
	}

	if _, err := p.Upload(context.Background(), "band", jsoncPath); err != nil {
		t.Fatalf("upload jsonc: %v", err)
	}
	if !json.Valid(store.uploads["band.json"]) {
		t.Fatalf("expected jsonc stripped to valid json: %s", store.uploads["band.json"])
	}
}

func TestExportWritesEditableBundle(t *testing.T) {
	store := newFakeStore()
	store.bundles["a/b"] = backend.Bundle{Agents: []persona.Persona{{Name: "x"}}}
	path, err := New(store, nil).Export(context.Background(), "a/b", t.TempDir())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if filepath.Base(path) != "a_b.json" {
		t.Fatalf("unexpected export path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(data) {
		t.Fatalf("expected valid json export")
	}
}
