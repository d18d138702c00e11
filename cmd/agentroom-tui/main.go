package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"agentroom/internal/backend"
	"agentroom/internal/config"
)

func main() {
	args := os.Args[1:]
	dotenvErr := config.LoadDotEnv(config.EnvFileFromArgs(args))

	cfg, err := config.Parse(args)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentroom-tui: %v\n", err)
		os.Exit(2)
	}

	handler := newTUILogHandler(parseLevel(cfg.LogLevel))
	logger, logFile, err := newLogger(cfg, handler)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentroom-tui: %v\n", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	slog.SetDefault(logger)
	if dotenvErr != nil {
		logger.Debug("no dotenv file loaded", "error", dotenvErr)
	}

	prefsPath := cfg.PrefsPath
	if prefsPath == "" {
		prefsPath = config.DefaultPrefsPath()
	}
	prefs, err := config.LoadPrefs(prefsPath)
	if err != nil {
		logger.Warn("preferences unreadable, using defaults", "path", prefsPath, "error", err)
		prefs = config.DefaultPrefs()
	}

	client := backend.NewClient(cfg.BaseURL, backend.WithSessionID(cfg.SessionID))
	logger.Info("starting", "url", cfg.BaseURL, "mode", cfg.Mode, "session", client.SessionID())

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(newModel(cfg, prefs, prefsPath, client, logger), opts...)
	handler.setProgram(p)
	final, err := p.Run()
	if fm, ok := final.(model); ok && fm.realtime != nil {
		_ = fm.realtime.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentroom-tui fatal error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger sends records to the status line and, with --log-file, to a
// text log as well.
func newLogger(cfg config.Config, tui slog.Handler) (*slog.Logger, io.Closer, error) {
	if cfg.LogFile == "" {
		return slog.New(tui), nil, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	file := slog.NewTextHandler(f, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})
	return slog.New(fanoutHandler{tui, file}), f, nil
}
