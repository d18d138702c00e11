package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"agentroom/internal/backend"
	"agentroom/internal/config"
	"agentroom/internal/persona"
	"agentroom/internal/portal"
	"agentroom/internal/session"
	"agentroom/internal/transcript"
)

const (
	logWindowSize    = 50
	timelineMaxLines = 12
	timelineMaxChars = 1600
)

type tabID int

const (
	tabChat tabID = iota
	tabRoster
	tabComponents
	tabSettings
	tabHelp
	tabCount
)

// promptKind says what the shared editor is collecting.
type promptKind int

const (
	promptNone promptKind = iota
	promptRosterField
	promptSaveName
	promptSnapshotName
	promptUploadPath
	promptSetting
)

type model struct {
	cfg       config.Config
	prefs     config.Prefs
	prefsPath string
	client    *backend.Client
	portal    *portal.Portal
	logger    *slog.Logger

	state      session.State
	transcript *transcript.Transcript
	reveal     *transcript.RevealQueue
	realtime   *backend.Realtime
	// pendingEcho is the last optimistic user line; the realtime server
	// broadcasts it back once and that copy is dropped.
	pendingEcho *transcript.Message
	autoChat    bool

	catalog       []portal.Row
	catalogIndex  int
	detail        *backend.Bundle
	deleteConfirm string

	rosterIndex   int
	fieldIndex    int
	settingsIndex int
	prompt        promptKind

	statusLine  string
	logs        []string
	inflight    bool
	quitConfirm bool
	activeTab   tabID

	width  int
	height int

	input    textinput.Model
	editor   textinput.Model
	timeline viewport.Model
	sidebar  viewport.Model
	spinner  spinner.Model

	theme uiTheme
}

type syncDoneMsg struct {
	version uint64
	err     error
}

type sendDoneMsg struct {
	generated []transcript.Message
	err       error
}

type historyMsg struct {
	messages []transcript.Message
	err      error
}

type revealMsg struct {
	step transcript.RevealStep
}

type realtimeReadyMsg struct {
	conn *backend.Realtime
	err  error
}

type realtimePushMsg struct {
	push backend.Push
}

type catalogMsg struct {
	rows []portal.Row
}

type detailMsg struct {
	bundle backend.Bundle
	err    error
}

type installDoneMsg struct {
	bundle    backend.Bundle
	installed bool
	err       error
}

type savedMsg struct {
	saved portal.Saved
	err   error
}

type deletedMsg struct {
	name string
	rows []portal.Row
	err  error
}

type actionDoneMsg struct {
	status string
	err    error
}

func newModel(cfg config.Config, prefs config.Prefs, prefsPath string, client *backend.Client, logger *slog.Logger) model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Placeholder = "Type a message for the roster. Slash commands: /turns /auto /export /history /help"
	input.Focus()

	editor := textinput.New()
	editor.Prompt = "✎ "
	editor.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(nullCoalesce(prefs.AccentColor, "#05ffa1")))

	timeline := viewport.New(0, 0)
	timeline.MouseWheelEnabled = true
	timeline.MouseWheelDelta = 4
	sidebar := viewport.New(0, 0)
	sidebar.MouseWheelEnabled = true
	sidebar.MouseWheelDelta = 4

	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.UserName) != "" {
		prefs.UserName = cfg.UserName
	}

	return model{
		cfg:        cfg,
		prefs:      prefs,
		prefsPath:  prefsPath,
		client:     client,
		portal:     portal.New(client, logger),
		logger:     logger,
		state:      session.New(persona.Defaults()),
		transcript: transcript.New(),
		reveal:     transcript.NewRevealQueue(cfg.RevealDelay),
		autoChat:   cfg.AutoChat,
		statusLine: "starting...",
		logs:       []string{},
		activeTab:  tabChat,
		input:      input,
		editor:     editor,
		timeline:   timeline,
		sidebar:    sidebar,
		spinner:    sp,
		theme:      newTheme(prefs),
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.syncCmd(m.state.Snapshot(), m.state.Version)}
	switch m.cfg.Mode {
	case config.ModeRealtime:
		cmds = append(cmds, m.dialRealtimeCmd())
	case config.ModeREST:
		cmds = append(cmds, m.historyCmd())
	}
	cmds = append(cmds, m.catalogCmd())
	return tea.Batch(cmds...)
}

// dispatch runs one event through the state core and turns its effects
// into commands.
func (m *model) dispatch(event session.Event) tea.Cmd {
	next, effects, err := session.Apply(m.state, event)
	if err != nil {
		m.logError(err)
		return nil
	}
	m.state = next
	m.rosterIndex = clampInt(m.rosterIndex, 0, maxInt(0, len(m.state.Roster)-1))
	cmds := make([]tea.Cmd, 0, len(effects))
	for _, effect := range effects {
		switch eff := effect.(type) {
		case session.SyncRoster:
			cmds = append(cmds, m.syncCmd(eff.Agents, eff.Version))
		case session.SendMessage:
			cmds = append(cmds, m.sendUserMessage(eff.Text))
		}
	}
	m.renderPanes()
	return tea.Batch(cmds...)
}

// sendUserMessage shows the line right away and then hands it to the
// backend. The local line stays even if the send fails.
func (m *model) sendUserMessage(text string) tea.Cmd {
	local := m.transcript.Append(transcript.Message{
		Role:    transcript.RoleUser,
		Name:    m.prefs.UserName,
		Content: text,
	})
	m.renderPanes()
	if m.cfg.Mode == config.ModeRealtime {
		if m.realtime == nil {
			m.appendSystem("リアルタイム接続がありません")
			return nil
		}
		m.pendingEcho = &local
		return m.realtimeSendCmd(text)
	}
	m.inflight = true
	return m.sendCmd(text)
}

func (m *model) appendSystem(content string) {
	m.transcript.Append(transcript.Message{Role: transcript.RoleSystem, Content: content})
	m.renderPanes()
}

func (m *model) appendLog(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	m.logs = append(m.logs, fmt.Sprintf("%s %s", time.Now().Format("15:04:05"), compactSingleLine(trimmed, 220)))
	if len(m.logs) > logWindowSize {
		m.logs = m.logs[len(m.logs)-logWindowSize:]
	}
}

func (m *model) logError(err error) {
	if err == nil {
		return
	}
	m.appendLog("error: " + err.Error())
	m.statusLine = "error: " + compactSingleLine(err.Error(), 160)
}

func (m *model) selectedRow() (portal.Row, bool) {
	if m.catalogIndex < 0 || m.catalogIndex >= len(m.catalog) {
		return portal.Row{}, false
	}
	row := m.catalog[m.catalogIndex]
	if row.Placeholder {
		return portal.Row{}, false
	}
	return row, true
}

func (m *model) selectedField() persona.Field {
	return persona.Fields[clampInt(m.fieldIndex, 0, len(persona.Fields)-1)]
}

func (m *model) setTab(tab tabID) {
	m.activeTab = tab
	if tab == tabChat && m.prompt == promptNone {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	m.renderPanes()
}

func (m *model) openPrompt(kind promptKind, value string) tea.Cmd {
	m.prompt = kind
	m.input.Blur()
	m.editor.SetValue(value)
	m.editor.CursorEnd()
	return m.editor.Focus()
}

func (m *model) closePrompt() {
	m.prompt = promptNone
	m.editor.Blur()
	m.editor.SetValue("")
	if m.activeTab == tabChat {
		m.input.Focus()
	}
}
