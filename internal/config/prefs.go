package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prefs is the client-local state that survives restarts.
type Prefs struct {
	UserName        string `yaml:"user_name"`
	AccentColor     string `yaml:"accent_color"`
	BackgroundColor string `yaml:"background_color"`
	BackgroundImage string `yaml:"background_image,omitempty"`
}

// DefaultPrefs mirrors the look the client ships with.
func DefaultPrefs() Prefs {
	return Prefs{
		UserName:        defaultUserName,
		AccentColor:     "#05ffa1",
		BackgroundColor: "#120924",
	}
}

// DefaultPrefsPath places the file under the user config directory.
func DefaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".", "agentroom.yaml")
	}
	return filepath.Join(dir, "agentroom", "prefs.yaml")
}

// LoadPrefs reads path once. A missing file yields the defaults.
func LoadPrefs(path string) (Prefs, error) {
	prefs := DefaultPrefs()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return DefaultPrefs(), fmt.Errorf("parsing %s: %w", path, err)
	}
	if strings.TrimSpace(prefs.UserName) == "" {
		prefs.UserName = defaultUserName
	}
	return prefs, nil
}

// SavePrefs writes the whole file; called on every settings edit.
func SavePrefs(path string, prefs Prefs) error {
	data, err := yaml.Marshal(prefs)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".prefs-*.yaml")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
