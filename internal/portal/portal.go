// Package portal lists, fetches, installs, saves and deletes named roster
// bundles held by the backend.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"agentroom/internal/backend"
	"agentroom/internal/persona"
)

// LoadFailedLabel is the text of the placeholder row shown when the catalog
// cannot be fetched.
const LoadFailedLabel = "読み込み失敗"

// ErrNotConfirmed is returned when a destructive action was declined.
var ErrNotConfirmed = errors.New("not confirmed")

// Store is the part of the backend client the portal needs.
type Store interface {
	ListComponents(ctx context.Context) ([]backend.ComponentInfo, error)
	GetComponent(ctx context.Context, name string) (backend.Bundle, error)
	UploadComponent(ctx context.Context, name string, bundle backend.Bundle) (backend.Ack, error)
	UploadComponentFile(ctx context.Context, name, filename string, content io.Reader) (backend.Ack, error)
	SaveComponent(ctx context.Context, name string) (backend.Ack, error)
	DeleteComponent(ctx context.Context, name string) error
	UpdateAgents(ctx context.Context, agents []persona.Persona) error
}

// Row is one line of the catalog view.
type Row struct {
	Name        string
	Author      string
	UploadedAt  string
	Placeholder bool
}

// Label is the text shown for the row.
func (r Row) Label() string {
	if r.Placeholder {
		return LoadFailedLabel
	}
	return r.Name
}

type Portal struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Portal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Portal{store: store, logger: logger.With("component", "portal")}
}

// List returns the catalog. A failed or empty fetch yields exactly one
// placeholder row.
func (p *Portal) List(ctx context.Context) []Row {
	items, err := p.store.ListComponents(ctx)
	if err != nil {
		p.logger.Warn("list components failed", "error", err)
		return []Row{{Placeholder: true}}
	}
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			continue
		}
		rows = append(rows, Row{Name: item.Name, Author: item.Author, UploadedAt: item.UploadedAt})
	}
	if len(rows) == 0 {
		return []Row{{Placeholder: true}}
	}
	return rows
}

func (p *Portal) Get(ctx context.Context, name string) (backend.Bundle, error) {
	bundle, err := p.store.GetComponent(ctx, name)
	if err != nil {
		return backend.Bundle{}, fmt.Errorf("get component %s: %w", name, err)
	}
	bundle.Agents = persona.Normalize(bundle.Agents)
	return bundle, nil
}

// Install makes the bundle's roster the active one. It reports false with no
// error when the bundle carries no personas.
func (p *Portal) Install(ctx context.Context, name string) (backend.Bundle, bool, error) {
	bundle, err := p.Get(ctx, name)
	if err != nil {
		return backend.Bundle{}, false, err
	}
	if len(bundle.Agents) == 0 {
		return bundle, false, nil
	}
	if err := p.store.UpdateAgents(ctx, bundle.Agents); err != nil {
		return bundle, false, fmt.Errorf("install %s: %w", name, err)
	}
	p.logger.Info("component installed", "name", name, "agents", len(bundle.Agents))
	return bundle, true, nil
}

// Saved is the outcome of a successful save or upload.
type Saved struct {
	Name string
	Rows []Row
}

// Save uploads an inline bundle and refreshes the catalog.
func (p *Portal) Save(ctx context.Context, name string, bundle backend.Bundle) (Saved, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Saved{}, errors.New("component name is required")
	}
	ack, err := p.store.UploadComponent(ctx, name, bundle)
	if err != nil {
		return Saved{}, fmt.Errorf("save component %s: %w", name, err)
	}
	return Saved{Name: ack.Name, Rows: p.List(ctx)}, nil
}

// Snapshot asks the backend to persist its own current state under name.
func (p *Portal) Snapshot(ctx context.Context, name string) (Saved, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Saved{}, errors.New("component name is required")
	}
	ack, err := p.store.SaveComponent(ctx, name)
	if err != nil {
		return Saved{}, fmt.Errorf("snapshot component %s: %w", name, err)
	}
	return Saved{Name: ack.Name, Rows: p.List(ctx)}, nil
}

// Upload sends a bundle file. JSONC and YAML files are converted to plain
// JSON first; anything else is sent as-is.
func (p *Portal) Upload(ctx context.Context, name, path string) (Saved, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Saved{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	filename := filepath.Base(path)
	payload, converted, err := normalizeBundleFile(filename, data)
	if err != nil {
		return Saved{}, fmt.Errorf("%s: %w", path, err)
	}
	if converted {
		filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".json"
	}
	ack, err := p.store.UploadComponentFile(ctx, name, filename, bytes.NewReader(payload))
	if err != nil {
		return Saved{}, fmt.Errorf("upload component %s: %w", name, err)
	}
	return Saved{Name: ack.Name, Rows: p.List(ctx)}, nil
}

// Export writes a bundle to dir as indented JSON so it can be edited and
// uploaded again.
func (p *Portal) Export(ctx context.Context, name, dir string) (string, error) {
	bundle, err := p.Get(ctx, name)
	if err != nil {
		return "", err
	}
	buf, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, safeFileName(name)+".json")
	if err := os.WriteFile(path, append(buf, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Delete removes a component after confirm approves it.
func (p *Portal) Delete(ctx context.Context, name string, confirm func(name string) bool) ([]Row, error) {
	if confirm == nil || !confirm(name) {
		return nil, ErrNotConfirmed
	}
	if err := p.store.DeleteComponent(ctx, name); err != nil {
		return nil, fmt.Errorf("delete component %s: %w", name, err)
	}
	return p.List(ctx), nil
}

func normalizeBundleFile(filename string, data []byte) ([]byte, bool, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jsonc":
		stripped := jsonc.ToJSON(data)
		if !json.Valid(stripped) {
			return nil, false, errors.New("invalid JSONC bundle")
		}
		return stripped, true, nil
	case ".yaml", ".yml":
		var bundle backend.Bundle
		if err := yaml.Unmarshal(data, &bundle); err != nil {
			return nil, false, fmt.Errorf("parsing YAML bundle: %w", err)
		}
		out, err := json.Marshal(bundle)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	default:
		return data, false, nil
	}
}

func safeFileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if cleaned == "" {
		return "component"
	}
	return cleaned
}
