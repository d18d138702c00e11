package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"agentroom/internal/backend"
	"agentroom/internal/config"
	"agentroom/internal/persona"
	"agentroom/internal/session"
	"agentroom/internal/transcript"
)

const (
	settingUserName = iota
	settingAccentColor
	settingBackgroundColor
	settingBackgroundImage
	settingTurns
	settingRevealDelay
	settingAutoChat
	settingCount
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case syncDoneMsg:
		if msg.err != nil {
			m.logger.Warn("roster sync failed", "version", msg.version, "error", msg.err)
			break
		}
		m.appendLog(fmt.Sprintf("roster synced v%d", msg.version))
		m.renderPanes()
	case sendDoneMsg:
		m.inflight = false
		if msg.err != nil {
			m.logger.Warn("send failed", "error", msg.err)
			m.appendSystem("通信エラー: " + compactSingleLine(msg.err.Error(), 200))
			m.statusLine = "send failed"
			break
		}
		if step, armed := m.reveal.Schedule(msg.generated); armed {
			cmds = append(cmds, revealTick(m.reveal.Delay, step))
		}
		m.statusLine = fmt.Sprintf("received %s", plural(len(msg.generated), "reply"))
	case revealMsg:
		next, ok, more := m.reveal.Next(msg.step)
		if ok {
			m.transcript.Append(next)
			m.renderPanes()
		}
		if more {
			cmds = append(cmds, revealTick(m.reveal.Delay, msg.step))
		}
	case historyMsg:
		if msg.err != nil {
			m.logger.Warn("history fetch failed", "error", msg.err)
			m.statusLine = "history unavailable"
			break
		}
		m.reveal.Cancel()
		m.transcript.LoadHistory(msg.messages)
		m.statusLine = fmt.Sprintf("history loaded · %s", plural(len(msg.messages), "message"))
		m.renderPanes()
	case realtimeReadyMsg:
		if msg.err != nil {
			m.logError(msg.err)
			m.appendSystem("リアルタイム接続に失敗しました: " + compactSingleLine(msg.err.Error(), 160))
			break
		}
		m.realtime = msg.conn
		m.statusLine = "realtime connected"
		cmds = append(cmds, m.syncCmd(m.state.Snapshot(), m.state.Version), waitPushCmd(m.realtime))
		if !m.autoChat {
			cmds = append(cmds, m.toggleAutoChatCmd(false))
		}
	case realtimePushMsg:
		cmds = append(cmds, m.handlePush(msg.push))
	case catalogMsg:
		m.catalog = msg.rows
		m.catalogIndex = clampInt(m.catalogIndex, 0, maxInt(0, len(m.catalog)-1))
		m.renderPanes()
	case detailMsg:
		if msg.err != nil {
			m.logError(msg.err)
			break
		}
		bundle := msg.bundle
		m.detail = &bundle
		m.statusLine = fmt.Sprintf("%s · %s", bundle.Name, plural(len(bundle.Agents), "agent"))
	case installDoneMsg:
		m.inflight = false
		if msg.err != nil {
			m.logError(msg.err)
			break
		}
		if !msg.installed {
			break
		}
		m.adoptRoster(msg.bundle.Agents)
		if len(msg.bundle.History) > 0 {
			m.reveal.Cancel()
			m.transcript.LoadHistory(msg.bundle.History)
		}
		m.setTab(tabChat)
		m.statusLine = fmt.Sprintf("installed %s · %s", msg.bundle.Name, plural(len(msg.bundle.Agents), "agent"))
	case savedMsg:
		m.inflight = false
		if msg.err != nil {
			m.logError(msg.err)
			break
		}
		m.catalog = msg.saved.Rows
		for i, row := range m.catalog {
			if row.Name == msg.saved.Name {
				m.catalogIndex = i
			}
		}
		m.statusLine = "saved component " + msg.saved.Name
		m.renderPanes()
	case deletedMsg:
		m.inflight = false
		if msg.err != nil {
			m.logError(msg.err)
			break
		}
		m.catalog = msg.rows
		m.catalogIndex = clampInt(m.catalogIndex, 0, maxInt(0, len(m.catalog)-1))
		m.detail = nil
		m.statusLine = "deleted component " + msg.name
		m.renderPanes()
	case actionDoneMsg:
		m.inflight = false
		if msg.err != nil {
			m.logError(msg.err)
		} else if strings.TrimSpace(msg.status) != "" {
			m.statusLine = msg.status
			m.appendLog(msg.status)
		}
	case logRecordMsg:
		m.appendLog(msg.Summary)
		if msg.Level >= slog.LevelWarn {
			m.statusLine = compactSingleLine(msg.Summary, 160)
		}
		m.renderPanes()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderPanes()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.MouseMsg:
		if m.quitConfirm || m.activeTab != tabChat {
			break
		}
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m *model) handlePush(push backend.Push) tea.Cmd {
	if push.Err != nil {
		m.logger.Warn("realtime connection ended", "error", push.Err)
		m.realtime = nil
		m.statusLine = "realtime disconnected"
		return nil
	}
	switch push.Event {
	case backend.EventHistory:
		m.reveal.Cancel()
		m.transcript.LoadHistory(push.History)
		m.pendingEcho = nil
	case backend.EventNewMessage:
		if m.isPendingEcho(push.Message) {
			m.pendingEcho = nil
			break
		}
		m.transcript.Append(push.Message)
	case backend.EventUpdateAgents:
		m.adoptRoster(push.Agents)
	}
	m.renderPanes()
	return waitPushCmd(m.realtime)
}

func (m *model) isPendingEcho(msg transcript.Message) bool {
	if m.pendingEcho == nil || msg.Role != transcript.RoleUser {
		return false
	}
	return msg.Content == m.pendingEcho.Content && msg.Name == m.pendingEcho.Name
}

// adoptRoster takes a roster the backend already holds. The sync effect of
// the transition is dropped since there is nothing to tell the server.
func (m *model) adoptRoster(agents []persona.Persona) {
	next, _, err := session.Apply(m.state, session.RosterReplaced{Agents: agents})
	if err != nil {
		m.logError(err)
		return
	}
	m.state = next
	m.rosterIndex = clampInt(m.rosterIndex, 0, maxInt(0, len(m.state.Roster)-1))
	m.renderPanes()
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.quitConfirm {
		switch key {
		case "y", "Y", "enter":
			return m, tea.Quit
		case "n", "N", "esc":
			m.quitConfirm = false
			m.statusLine = "quit canceled"
			m.renderPanes()
		}
		return m, nil
	}
	if m.deleteConfirm != "" {
		name := m.deleteConfirm
		switch key {
		case "y", "Y":
			m.deleteConfirm = ""
			m.inflight = true
			m.statusLine = "deleting " + name + "..."
			return m, m.deleteCmd(name)
		case "n", "N", "esc":
			m.deleteConfirm = ""
			m.statusLine = "delete canceled"
		}
		return m, nil
	}
	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	switch key {
	case "esc":
		if m.activeTab == tabChat {
			m.beginQuitConfirm()
			return m, nil
		}
		m.setTab(tabChat)
		return m, nil
	case "tab":
		m.setTab((m.activeTab + 1) % tabCount)
		return m, nil
	case "shift+tab":
		m.setTab((m.activeTab + tabCount - 1) % tabCount)
		return m, nil
	}

	switch m.activeTab {
	case tabChat:
		return m.handleChatKey(msg)
	case tabRoster:
		cmd := m.handleRosterKey(key)
		return m, cmd
	case tabComponents:
		cmd := m.handleComponentsKey(key)
		return m, cmd
	case tabSettings:
		cmd := m.handleSettingsKey(key)
		return m, cmd
	}
	return m, nil
}

func (m model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.inflight {
			return m, nil
		}
		raw := m.input.Value()
		if strings.HasPrefix(strings.TrimSpace(raw), "/") {
			m.input.SetValue("")
			cmd := m.handleSlash(strings.TrimSpace(raw))
			return m, cmd
		}
		if strings.TrimSpace(raw) == "" {
			return m, nil
		}
		m.input.SetValue("")
		cmd := m.dispatch(session.MessageSent{Text: raw})
		return m, cmd
	case "pgup", "ctrl+b":
		m.timeline.LineUp(8)
		return m, nil
	case "pgdown", "ctrl+f":
		m.timeline.LineDown(8)
		return m, nil
	case "up":
		if strings.TrimSpace(m.input.Value()) == "" {
			m.timeline.LineUp(4)
			return m, nil
		}
	case "down":
		if strings.TrimSpace(m.input.Value()) == "" {
			m.timeline.LineDown(4)
			return m, nil
		}
	case "home":
		m.timeline.GotoTop()
		return m, nil
	case "end":
		m.timeline.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) handleRosterKey(key string) tea.Cmd {
	switch key {
	case "up", "k":
		m.rosterIndex = maxInt(0, m.rosterIndex-1)
	case "down", "j":
		m.rosterIndex = minInt(maxInt(0, len(m.state.Roster)-1), m.rosterIndex+1)
	case "left", "h":
		m.fieldIndex = (m.fieldIndex + len(persona.Fields) - 1) % len(persona.Fields)
	case "right", "l":
		m.fieldIndex = (m.fieldIndex + 1) % len(persona.Fields)
	case "a":
		cmd := m.dispatch(session.AgentAdded{})
		m.rosterIndex = maxInt(0, len(m.state.Roster)-1)
		m.statusLine = "agent added"
		return cmd
	case "d", "delete":
		if len(m.state.Roster) == 0 {
			return nil
		}
		m.statusLine = "agent removed"
		return m.dispatch(session.AgentRemoved{Index: m.rosterIndex})
	case "+", "=", "-", "_":
		if len(m.state.Roster) == 0 {
			return nil
		}
		field := m.selectedField()
		if field != persona.FieldTalkativeness && field != persona.FieldResponseLength {
			m.statusLine = "+/- adjusts talkativeness or response_length"
			return nil
		}
		delta := 1
		if key == "-" || key == "_" {
			delta = -1
		}
		return m.dispatch(session.AgentStepped{Index: m.rosterIndex, Field: field, Delta: delta})
	case "enter", "e":
		if len(m.state.Roster) == 0 {
			return nil
		}
		field := m.selectedField()
		m.statusLine = fmt.Sprintf("editing %s of #%d · enter/esc to finish", field, m.rosterIndex+1)
		return m.openPrompt(promptRosterField, m.state.Roster[m.rosterIndex].Get(field))
	}
	return nil
}

func (m *model) handleComponentsKey(key string) tea.Cmd {
	switch key {
	case "up", "k":
		m.catalogIndex = maxInt(0, m.catalogIndex-1)
		m.detail = nil
	case "down", "j":
		m.catalogIndex = minInt(maxInt(0, len(m.catalog)-1), m.catalogIndex+1)
		m.detail = nil
	case "r":
		m.statusLine = "refreshing components..."
		return m.catalogCmd()
	case "s":
		m.statusLine = "save current roster as component · name:"
		return m.openPrompt(promptSaveName, "")
	case "S":
		m.statusLine = "snapshot backend roster+history as component · name:"
		return m.openPrompt(promptSnapshotName, "")
	case "u":
		m.statusLine = "upload component file · path (.json .jsonc .yaml):"
		return m.openPrompt(promptUploadPath, "")
	}
	row, ok := m.selectedRow()
	if !ok {
		return nil
	}
	switch key {
	case "enter":
		return m.detailCmd(row.Name)
	case "i":
		if m.inflight {
			return nil
		}
		m.inflight = true
		m.statusLine = "installing " + row.Name + "..."
		return m.installCmd(row.Name)
	case "e":
		return m.exportComponentCmd(row.Name)
	case "x", "delete":
		m.deleteConfirm = row.Name
		m.statusLine = fmt.Sprintf("%sを削除しますか？ (y/n)", row.Name)
	}
	return nil
}

func (m *model) handleSettingsKey(key string) tea.Cmd {
	switch key {
	case "up", "k":
		m.settingsIndex = maxInt(0, m.settingsIndex-1)
	case "down", "j":
		m.settingsIndex = minInt(settingCount-1, m.settingsIndex+1)
	case "left", "h", "-":
		return m.adjustSetting(-1)
	case "right", "l", "+":
		return m.adjustSetting(1)
	case "enter":
		value, ok := m.settingText(m.settingsIndex)
		if !ok {
			return m.adjustSetting(1)
		}
		return m.openPrompt(promptSetting, value)
	}
	return nil
}

func (m *model) adjustSetting(delta int) tea.Cmd {
	switch m.settingsIndex {
	case settingTurns:
		m.cfg.Turns = clampInt(m.cfg.Turns+delta, 0, 20)
	case settingRevealDelay:
		ms := clampInt(int(m.reveal.Delay/time.Millisecond)+delta*100, 100, 10000)
		m.reveal.Delay = time.Duration(ms) * time.Millisecond
		m.cfg.RevealDelay = m.reveal.Delay
	case settingAutoChat:
		m.autoChat = !m.autoChat
		m.statusLine = "auto-chat " + onOff(m.autoChat)
		return m.toggleAutoChatCmd(m.autoChat)
	default:
		return nil
	}
	m.statusLine = "settings updated"
	return nil
}

func (m *model) settingText(index int) (string, bool) {
	switch index {
	case settingUserName:
		return m.prefs.UserName, true
	case settingAccentColor:
		return m.prefs.AccentColor, true
	case settingBackgroundColor:
		return m.prefs.BackgroundColor, true
	case settingBackgroundImage:
		return m.prefs.BackgroundImage, true
	default:
		return "", false
	}
}

// setSettingText stores a preference edit and persists the file.
func (m *model) setSettingText(index int, value string) tea.Cmd {
	switch index {
	case settingUserName:
		m.prefs.UserName = value
	case settingAccentColor:
		m.prefs.AccentColor = value
	case settingBackgroundColor:
		m.prefs.BackgroundColor = value
	case settingBackgroundImage:
		m.prefs.BackgroundImage = value
	default:
		return nil
	}
	m.theme = newTheme(m.prefs)
	return m.savePrefsCmd()
}

func (m model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePrompt()
		m.statusLine = "edit closed"
		m.renderPanes()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.editor.Value())
		kind := m.prompt
		m.closePrompt()
		switch kind {
		case promptSaveName:
			if value == "" {
				m.statusLine = "component name is required"
				return m, nil
			}
			m.inflight = true
			return m, m.saveCmd(value)
		case promptSnapshotName:
			if value == "" {
				m.statusLine = "component name is required"
				return m, nil
			}
			m.inflight = true
			return m, m.snapshotCmd(value)
		case promptUploadPath:
			if value == "" {
				m.statusLine = "file path is required"
				return m, nil
			}
			m.inflight = true
			return m, m.uploadCmd(value)
		}
		m.statusLine = "edit saved"
		m.renderPanes()
		return m, nil
	}

	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	after := m.editor.Value()
	if before == after {
		return m, cmd
	}
	switch m.prompt {
	case promptRosterField:
		// every keystroke is an edit and every edit is a sync
		sync := m.dispatch(session.AgentEdited{
			Index: m.rosterIndex,
			Field: m.selectedField(),
			Value: after,
		})
		return m, tea.Batch(cmd, sync)
	case promptSetting:
		save := m.setSettingText(m.settingsIndex, after)
		return m, tea.Batch(cmd, save)
	}
	return m, cmd
}

func (m *model) handleSlash(raw string) tea.Cmd {
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return nil
	}
	cmd := strings.ToLower(parts[0])
	tail := parts[1:]
	switch cmd {
	case "/help":
		m.setTab(tabHelp)
		return nil
	case "/quit", "/exit":
		m.beginQuitConfirm()
		return nil
	case "/turns":
		if len(tail) == 0 {
			m.statusLine = fmt.Sprintf("turns: %d", m.cfg.Turns)
			return nil
		}
		parsed, err := strconv.Atoi(tail[0])
		if err != nil {
			m.statusLine = "usage: /turns <0-20>"
			return nil
		}
		m.cfg.Turns = clampInt(parsed, 0, 20)
		m.statusLine = fmt.Sprintf("turns set: %d", m.cfg.Turns)
		return nil
	case "/auto":
		if m.cfg.Mode != config.ModeRealtime {
			m.statusLine = "auto-chat needs --mode realtime"
			return nil
		}
		if len(tail) > 0 {
			switch strings.ToLower(tail[0]) {
			case "on":
				m.autoChat = true
			case "off":
				m.autoChat = false
			default:
				m.statusLine = "usage: /auto on|off"
				return nil
			}
		} else {
			m.autoChat = !m.autoChat
		}
		return m.toggleAutoChatCmd(m.autoChat)
	case "/export":
		path := "transcript.html"
		if len(tail) > 0 {
			path = tail[0]
		}
		return m.exportTranscriptCmd(path)
	case "/history":
		if m.cfg.Mode == config.ModePush {
			m.statusLine = "push mode keeps no server history"
			return nil
		}
		return m.historyCmd()
	case "/clear":
		m.reveal.Cancel()
		m.transcript.LoadHistory(nil)
		m.renderPanes()
		return nil
	default:
		m.statusLine = "unknown command: " + cmd
		return nil
	}
}

func (m *model) beginQuitConfirm() {
	m.quitConfirm = true
	m.statusLine = "ARE YOU SURE YOU WANT TO QUIT?"
}
