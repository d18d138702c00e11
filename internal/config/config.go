package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	defaultBaseURL     = "http://127.0.0.1:5000"
	defaultUserName    = "ユーザー"
	defaultTurns       = 3
	defaultRevealDelay = 1200 * time.Millisecond
)

// Mode selects how chat turns reach the backend.
type Mode string

const (
	// ModeREST posts each message and receives the generated replies in one batch.
	ModeREST Mode = "rest"
	// ModePush sends the roster with every message to the stateless /chat endpoint.
	ModePush Mode = "push"
	// ModeRealtime keeps a websocket open and receives replies as server pushes.
	ModeRealtime Mode = "realtime"
)

type Config struct {
	BaseURL     string
	Mode        Mode
	UserName    string
	Turns       int
	RevealDelay time.Duration
	SessionID   string
	PrefsPath   string
	LogFile     string
	LogLevel    string
	AltScreen   bool
	AutoChat    bool
	EnvFile     string
}

// LoadDotEnv reads KEY=VALUE pairs into the environment. A missing file is
// reported but is not fatal.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Parse reads flags from args, defaulting each from AGENTROOM_* variables.
func Parse(args []string) (Config, error) {
	fs := pflag.NewFlagSet("agentroom-tui", pflag.ContinueOnError)
	cfg := Config{}
	var mode string
	revealMS := envOrInt("AGENTROOM_REVEAL_DELAY_MS", int(defaultRevealDelay/time.Millisecond))

	fs.StringVar(&cfg.BaseURL, "url", envOr("AGENTROOM_URL", defaultBaseURL), "Backend base URL")
	fs.StringVar(&mode, "mode", envOr("AGENTROOM_MODE", string(ModeREST)), "Chat mode (rest|push|realtime)")
	fs.StringVar(&cfg.UserName, "name", envOr("AGENTROOM_USER_NAME", ""), "Display name sent with messages (overrides saved preference)")
	fs.IntVar(&cfg.Turns, "turns", envOrInt("AGENTROOM_TURNS", defaultTurns), "Maximum agent replies per user turn (0 lets the backend decide)")
	fs.IntVar(&revealMS, "reveal-delay-ms", revealMS, "Delay between revealed replies in milliseconds")
	fs.StringVar(&cfg.SessionID, "session-id", envOr("AGENTROOM_SESSION_ID", ""), "Pin the session id instead of generating one")
	fs.StringVar(&cfg.PrefsPath, "prefs", envOr("AGENTROOM_PREFS", ""), "Preferences file (default: user config dir)")
	fs.StringVar(&cfg.LogFile, "log-file", envOr("AGENTROOM_LOG_FILE", ""), "Also write logs to this file")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("AGENTROOM_LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")
	fs.BoolVar(&cfg.AltScreen, "alt-screen", envOrBool("AGENTROOM_ALT_SCREEN", true), "Use alternate screen buffer")
	fs.BoolVar(&cfg.AutoChat, "auto-chat", envOrBool("AGENTROOM_AUTO_CHAT", true), "Let agents keep talking between user turns (realtime mode)")
	fs.StringVar(&cfg.EnvFile, "env-file", ".env", "Dotenv file loaded before flags are read")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	parsedMode, err := ParseMode(mode)
	if err != nil {
		return Config{}, err
	}
	cfg.Mode = parsedMode
	cfg.Turns = clampInt(cfg.Turns, 0, 20)
	cfg.RevealDelay = time.Duration(clampInt(revealMS, 0, 60000)) * time.Millisecond
	if cfg.RevealDelay == 0 {
		cfg.RevealDelay = time.Millisecond
	}
	return cfg, nil
}

// ParseMode accepts the mode names case-insensitively.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeREST, "":
		return ModeREST, nil
	case ModePush:
		return ModePush, nil
	case ModeRealtime, "ws":
		return ModeRealtime, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want rest|push|realtime)", raw)
	}
}

// EnvFileFromArgs finds --env-file before the full parse so the dotenv file
// can feed the flag defaults.
func EnvFileFromArgs(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--env-file" && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(arg, "--env-file="):
			return strings.TrimPrefix(arg, "--env-file=")
		}
	}
	return ".env"
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
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
