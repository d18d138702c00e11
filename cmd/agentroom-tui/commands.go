package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"agentroom/internal/backend"
	"agentroom/internal/config"
	"agentroom/internal/persona"
	"agentroom/internal/transcript"
)

const realtimeDialTimeout = 10 * time.Second

// syncCmd pushes the roster. It is fire-and-forget: the result is only
// logged and nothing is rolled back.
func (m model) syncCmd(agents []persona.Persona, version uint64) tea.Cmd {
	client := m.client
	conn := m.realtime
	return func() tea.Msg {
		var err error
		if conn != nil {
			err = conn.UpdateAgents(agents)
		} else {
			err = client.UpdateAgents(context.Background(), agents)
		}
		return syncDoneMsg{version: version, err: err}
	}
}

func (m model) sendCmd(text string) tea.Cmd {
	client := m.client
	mode := m.cfg.Mode
	name := m.prefs.UserName
	turns := m.cfg.Turns
	roster := m.state.Snapshot()
	return func() tea.Msg {
		ctx := context.Background()
		if mode == config.ModePush {
			generated, err := client.Chat(ctx, text, roster)
			return sendDoneMsg{generated: generated, err: err}
		}
		result, err := client.SendMessage(ctx, text, name, turns)
		return sendDoneMsg{generated: result.Generated, err: err}
	}
}

func (m model) realtimeSendCmd(text string) tea.Cmd {
	conn := m.realtime
	name := m.prefs.UserName
	return func() tea.Msg {
		if err := conn.SendUserMessage(text, name); err != nil {
			return sendDoneMsg{err: err}
		}
		return nil
	}
}

func (m model) historyCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		msgs, err := client.History(context.Background())
		return historyMsg{messages: msgs, err: err}
	}
}

func (m model) dialRealtimeCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), realtimeDialTimeout)
		defer cancel()
		conn, err := client.DialRealtime(ctx)
		return realtimeReadyMsg{conn: conn, err: err}
	}
}

func waitPushCmd(conn *backend.Realtime) tea.Cmd {
	if conn == nil {
		return nil
	}
	return func() tea.Msg {
		push, ok := <-conn.Pushes()
		if !ok {
			return realtimePushMsg{push: backend.Push{Err: errors.New("realtime connection closed")}}
		}
		return realtimePushMsg{push: push}
	}
}

func (m model) toggleAutoChatCmd(enabled bool) tea.Cmd {
	conn := m.realtime
	if conn == nil {
		return nil
	}
	return func() tea.Msg {
		if err := conn.ToggleAutoChat(enabled); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: "auto-chat " + onOff(enabled)}
	}
}

func revealTick(delay time.Duration, step transcript.RevealStep) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return revealMsg{step: step}
	})
}

func (m model) catalogCmd() tea.Cmd {
	p := m.portal
	return func() tea.Msg {
		return catalogMsg{rows: p.List(context.Background())}
	}
}

func (m model) detailCmd(name string) tea.Cmd {
	p := m.portal
	return func() tea.Msg {
		bundle, err := p.Get(context.Background(), name)
		return detailMsg{bundle: bundle, err: err}
	}
}

func (m model) installCmd(name string) tea.Cmd {
	p := m.portal
	return func() tea.Msg {
		bundle, installed, err := p.Install(context.Background(), name)
		return installDoneMsg{bundle: bundle, installed: installed, err: err}
	}
}

func (m model) saveCmd(name string) tea.Cmd {
	p := m.portal
	bundle := backend.Bundle{Agents: m.state.Snapshot(), History: m.transcript.Messages()}
	return func() tea.Msg {
		saved, err := p.Save(context.Background(), name, bundle)
		return savedMsg{saved: saved, err: err}
	}
}

func (m model) snapshotCmd(name string) tea.Cmd {
	p := m.portal
	return func() tea.Msg {
		saved, err := p.Snapshot(context.Background(), name)
		return savedMsg{saved: saved, err: err}
	}
}

func (m model) uploadCmd(path string) tea.Cmd {
	p := m.portal
	return func() tea.Msg {
		saved, err := p.Upload(context.Background(), "", path)
		return savedMsg{saved: saved, err: err}
	}
}

func (m model) exportComponentCmd(name string) tea.Cmd {
	p := m.portal
	return func() tea.Msg {
		dir, err := os.Getwd()
		if err != nil {
			return actionDoneMsg{err: err}
		}
		path, err := p.Export(context.Background(), name, dir)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: fmt.Sprintf("exported %s → %s (edit, then u to upload)", name, path)}
	}
}

// deleteCmd runs only after the user answered the confirmation modal.
func (m model) deleteCmd(name string) tea.Cmd {
	p := m.portal
	return func() tea.Msg {
		rows, err := p.Delete(context.Background(), name, func(string) bool { return true })
		return deletedMsg{name: name, rows: rows, err: err}
	}
}

func (m model) exportTranscriptCmd(path string) tea.Cmd {
	msgs := m.transcript.Messages()
	roster := m.state.Snapshot()
	return func() tea.Msg {
		file, err := os.Create(path)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		if err := transcript.ExportHTML(file, msgs, roster); err != nil {
			_ = file.Close()
			return actionDoneMsg{err: fmt.Errorf("export %s: %w", path, err)}
		}
		if err := file.Close(); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: fmt.Sprintf("transcript exported: %s (%s)", path, plural(len(msgs), "message"))}
	}
}

func (m model) savePrefsCmd() tea.Cmd {
	path := m.prefsPath
	prefs := m.prefs
	return func() tea.Msg {
		if err := config.SavePrefs(path, prefs); err != nil {
			return actionDoneMsg{err: err}
		}
		return nil
	}
}
