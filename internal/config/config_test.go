package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultsFromEnv(t *testing.T) {
	t.Setenv("AGENTROOM_URL", "http://backend:9000/")
	t.Setenv("AGENTROOM_MODE", "Realtime")
	t.Setenv("AGENTROOM_TURNS", "99")
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.BaseURL != "http://backend:9000" {
		t.Fatalf("unexpected base url %q", cfg.BaseURL)
	}
	if cfg.Mode != ModeRealtime {
		t.Fatalf("unexpected mode %q", cfg.Mode)
	}
	if cfg.Turns != 20 {
		t.Fatalf("expected turns clamped to 20, got %d", cfg.Turns)
	}
}

func TestParseFlagsOverrideEnv(t *testing.T) {
	t.Setenv("AGENTROOM_MODE", "push")
	cfg, err := Parse([]string{"--mode", "rest", "--reveal-delay-ms", "250", "--name", "ao"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Mode != ModeREST || cfg.RevealDelay != 250*time.Millisecond || cfg.UserName != "ao" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestParseRejectsUnknownMode(t *testing.T) {
	if _, err := Parse([]string{"--mode", "carrier-pigeon"}); err == nil {
		t.Fatalf("expected unknown mode error")
	}
}

func TestEnvFileFromArgs(t *testing.T) {
	if got := EnvFileFromArgs([]string{"--env-file=dev.env"}); got != "dev.env" {
		t.Fatalf("unexpected env file %q", got)
	}
	if got := EnvFileFromArgs([]string{"--env-file", "x.env", "--mode", "push"}); got != "x.env" {
		t.Fatalf("unexpected env file %q", got)
	}
	if got := EnvFileFromArgs(nil); got != ".env" {
		t.Fatalf("unexpected default env file %q", got)
	}
}

func TestLoadDotEnvSetsVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("AGENTROOM_TEST_DOTENV=loaded\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("AGENTROOM_TEST_DOTENV") })
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if os.Getenv("AGENTROOM_TEST_DOTENV") != "loaded" {
		t.Fatalf("expected dotenv variable to be set")
	}
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected missing file to be reported")
	}
}

func TestPrefsRoundTripOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")
	prefs, err := LoadPrefs(path)
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if prefs != DefaultPrefs() {
		t.Fatalf("expected defaults for missing file, got %+v", prefs)
	}
	prefs.BackgroundImage = "https://example.test/bg.png"
	prefs.UserName = "ao"
	if err := SavePrefs(path, prefs); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadPrefs(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != prefs {
		t.Fatalf("expected %+v, got %+v", prefs, loaded)
	}
}
