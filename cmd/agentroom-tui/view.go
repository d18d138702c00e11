package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"agentroom/internal/config"
	"agentroom/internal/persona"
	"agentroom/internal/transcript"
)

func (m model) View() string {
	header := m.renderHeader()
	content := m.renderContent()
	input := m.renderInput()
	footer := m.renderFooter()
	out := lipgloss.JoinVertical(lipgloss.Left, header, content, input, footer)
	if m.quitConfirm {
		out = m.renderModal(
			"EXIT AGENTROOM?",
			"Are you sure you want to quit?",
			"[Y / Enter] Quit",
			"[N / Esc] Return",
		)
	} else if m.deleteConfirm != "" {
		out = m.renderModal(
			"DELETE COMPONENT?",
			m.deleteConfirm+"を削除しますか？",
			"[Y] Delete",
			"[N / Esc] Keep",
		)
	}
	return m.theme.root.Render(out)
}

func (m *model) renderHeader() string {
	tabs := []struct {
		id    tabID
		label string
	}{
		{tabChat, "Chat"},
		{tabRoster, "Roster"},
		{tabComponents, "Components"},
		{tabSettings, "Settings"},
		{tabHelp, "Help"},
	}
	segments := make([]string, 0, len(tabs)+1)
	for _, tab := range tabs {
		style := m.theme.tabInactive
		if tab.id == m.activeTab {
			style = m.theme.tabActive
		}
		segments = append(segments, style.Render(tab.label))
	}
	link := "offline"
	if m.cfg.Mode != config.ModeRealtime {
		link = "http"
	} else if m.realtime != nil {
		link = "live"
	}
	meta := fmt.Sprintf(" %s · %s · %s · roster v%d", m.cfg.BaseURL, m.cfg.Mode, link, m.state.Version)
	segments = append(segments, m.theme.helpText.Render(meta))
	joined := lipgloss.JoinHorizontal(lipgloss.Left, segments...)
	return m.theme.header.Width(maxInt(20, m.width-4)).Render(joined)
}

func (m *model) renderContent() string {
	contentHeight := maxInt(8, m.height-12)
	contentWidth := maxInt(40, m.width-4)

	switch m.activeTab {
	case tabChat:
		leftWidth, rightWidth := splitWidths(contentWidth)
		left := m.theme.panel.Width(leftWidth).Height(contentHeight).Render(
			m.theme.panelTitle.Render("Conversation") + "\n" + m.timeline.View(),
		)
		right := m.theme.panel.Width(rightWidth).Height(contentHeight).Render(
			m.theme.panelTitle.Render("Roster + Log") + "\n" + m.sidebar.View(),
		)
		return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	case tabRoster:
		panel := m.theme.panel.Width(contentWidth).Height(contentHeight)
		return panel.Render(m.theme.panelTitle.Render("Agent Roster") + "\n" + m.renderRoster())
	case tabComponents:
		panel := m.theme.panel.Width(contentWidth).Height(contentHeight)
		return panel.Render(m.theme.panelTitle.Render("Component Portal") + "\n" + m.renderComponents())
	case tabSettings:
		panel := m.theme.panel.Width(contentWidth).Height(contentHeight)
		return panel.Render(m.theme.panelTitle.Render("Settings") + "\n" + m.renderSettings())
	case tabHelp:
		panel := m.theme.panel.Width(contentWidth).Height(contentHeight)
		return panel.Render(m.theme.panelTitle.Render("Help") + "\n" + m.renderHelp())
	default:
		return ""
	}
}

func splitWidths(contentWidth int) (left, right int) {
	left = int(float64(contentWidth) * 0.68)
	right = contentWidth - left - 1
	if right < 28 {
		right = 28
		left = contentWidth - right - 1
	}
	return left, right
}

func (m *model) renderPanes() {
	follow := m.transcript.TakeFollow()
	prevTimelineYOffset := m.timeline.YOffset
	prevTimelineAtBottom := m.timeline.AtBottom()
	prevSidebarYOffset := m.sidebar.YOffset
	prevSidebarAtBottom := m.sidebar.AtBottom()

	contentHeight := maxInt(8, m.height-12)
	contentWidth := maxInt(40, m.width-4)
	leftWidth, rightWidth := splitWidths(contentWidth)

	m.timeline.Width = maxInt(20, leftWidth-4)
	m.timeline.Height = maxInt(5, contentHeight-3)
	m.sidebar.Width = maxInt(20, rightWidth-4)
	m.sidebar.Height = maxInt(5, contentHeight-3)

	m.timeline.SetContent(m.renderTimeline())
	if follow || prevTimelineAtBottom {
		m.timeline.GotoBottom()
	} else {
		m.timeline.SetYOffset(prevTimelineYOffset)
	}
	m.sidebar.SetContent(m.renderSidebar())
	if prevSidebarAtBottom {
		m.sidebar.GotoBottom()
	} else {
		m.sidebar.SetYOffset(prevSidebarYOffset)
	}
}

func (m *model) resize() {
	contentWidth := maxInt(40, m.width-4)
	m.input.Width = maxInt(20, contentWidth-6)
	m.editor.Width = maxInt(20, contentWidth-6)
}

func (m *model) renderTimeline() string {
	msgs := m.transcript.Messages()
	if len(msgs) == 0 {
		return "No messages yet. Type below and press Enter to talk to the roster."
	}
	width := maxInt(24, m.timeline.Width-2)
	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(m.speakerLabel(msg))
		b.WriteString("\n")
		preview := compactTimelineMessage(transcript.TerminalSafe(msg.Content), timelineMaxLines, timelineMaxChars)
		b.WriteString(wrapText(preview, width))
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

func (m *model) speakerLabel(msg transcript.Message) string {
	name := transcript.TerminalSafe(msg.Name)
	header := fmt.Sprintf("%s %s", msg.Timestamp, name)
	switch msg.Role {
	case transcript.RoleUser:
		return m.theme.userName.Render(fmt.Sprintf("%s %s", msg.Timestamp, nullCoalesce(name, m.prefs.UserName)))
	case transcript.RoleSystem:
		return m.theme.systemName.Render(fmt.Sprintf("%s [system]", msg.Timestamp))
	}
	style := transcript.Resolve(m.state.Roster, msg)
	if !style.Known {
		return m.theme.unknownAgent.Render(header + " ?")
	}
	return m.theme.personaStyle(style.Color).Render(header)
}

func (m *model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(m.theme.accent.Render(fmt.Sprintf("Roster (%d)", len(m.state.Roster))))
	b.WriteString("\n")
	if len(m.state.Roster) == 0 {
		b.WriteString(m.theme.helpText.Render("empty · add agents in the Roster tab"))
		b.WriteString("\n")
	}
	for _, p := range m.state.Roster {
		line := fmt.Sprintf("%s %s  t=%.1f len=%d", swatch(p), padRight(truncate(transcript.TerminalSafe(p.Name), 18), 18), p.Talkativeness, p.ResponseLength)
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	mode := fmt.Sprintf("Mode %s · turns=%d · reveal=%s", m.cfg.Mode, m.cfg.Turns, m.reveal.Delay.Round(100*time.Millisecond))
	if m.cfg.Mode == config.ModeRealtime {
		mode += " · auto=" + onOff(m.autoChat)
	}
	if pending := m.reveal.Pending(); pending > 0 {
		mode += fmt.Sprintf(" · %d queued", pending)
	}
	b.WriteString(m.theme.helpText.Render(mode))
	b.WriteString("\n\n")
	b.WriteString(m.theme.accent.Render("Log"))
	b.WriteString("\n")
	if len(m.logs) == 0 {
		b.WriteString(m.theme.helpText.Render("(quiet)"))
	}
	for _, line := range m.logs {
		b.WriteString(wrapText(line, maxInt(16, m.sidebar.Width-2)))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func (m *model) renderRoster() string {
	var b strings.Builder
	b.WriteString(m.theme.helpText.Render("↑/↓ agent · ←/→ field · Enter edit · +/- step · a add · d delete"))
	b.WriteString("\n\n")
	rows := m.state.Rows()
	if len(rows) == 0 {
		b.WriteString(m.theme.helpText.Render("No agents. Press a to add one."))
		return b.String()
	}
	selectedField := m.selectedField()
	for _, row := range rows {
		p := m.state.Roster[row.Index]
		prefix := "  "
		titleStyle := m.theme.personaStyle(p.Color)
		if row.Index == m.rosterIndex {
			prefix = "▶ "
		}
		title := fmt.Sprintf("#%d %s", row.Index+1, transcript.TerminalSafe(row.Values[persona.FieldName]))
		b.WriteString(prefix + swatch(p) + " " + titleStyle.Render(title) + "\n")
		if row.Index != m.rosterIndex {
			continue
		}
		for _, field := range persona.Fields {
			keyStyle := m.theme.settingKey
			valueStyle := m.theme.settingValue
			marker := "   "
			if field == selectedField {
				keyStyle = m.theme.settingPick
				valueStyle = m.theme.settingPick
				marker = " ▸ "
			}
			value := compactSingleLine(transcript.TerminalSafe(row.Values[field]), maxInt(20, m.width-32))
			if field == selectedField && m.prompt == promptRosterField {
				value = m.editor.View()
			}
			b.WriteString(marker + keyStyle.Render(fmt.Sprintf("%-16s", field)) + " " + valueStyle.Render(value) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *model) renderComponents() string {
	var b strings.Builder
	b.WriteString(m.theme.helpText.Render("↑/↓ select · Enter detail · i install · e export · s save roster · S snapshot · u upload · x delete · r refresh"))
	b.WriteString("\n\n")
	if len(m.catalog) == 0 {
		b.WriteString(m.theme.helpText.Render("loading..."))
	}
	for i, row := range m.catalog {
		prefix := "  "
		style := m.theme.settingValue
		if i == m.catalogIndex {
			prefix = "▶ "
			style = m.theme.settingPick
		}
		if row.Placeholder {
			b.WriteString(prefix + m.theme.errorStatus.Render(row.Label()) + "\n")
			continue
		}
		line := transcript.TerminalSafe(row.Label())
		var meta []string
		if strings.TrimSpace(row.Author) != "" {
			meta = append(meta, "by "+transcript.TerminalSafe(row.Author))
		}
		if strings.TrimSpace(row.UploadedAt) != "" {
			meta = append(meta, row.UploadedAt)
		}
		b.WriteString(prefix + style.Render(line))
		if len(meta) > 0 {
			b.WriteString("  " + m.theme.helpText.Render(strings.Join(meta, " · ")))
		}
		b.WriteString("\n")
	}
	if m.detail != nil {
		b.WriteString("\n")
		b.WriteString(m.theme.accent.Render(fmt.Sprintf("%s · %s · %s",
			transcript.TerminalSafe(m.detail.Name),
			plural(len(m.detail.Agents), "agent"),
			plural(len(m.detail.History), "message"))))
		b.WriteString("\n")
		for _, p := range m.detail.Agents {
			system := compactSingleLine(transcript.TerminalSafe(p.System), maxInt(20, m.width-40))
			b.WriteString("  " + swatch(p) + " " + m.theme.personaStyle(p.Color).Render(transcript.TerminalSafe(p.Name)) + "  " + m.theme.helpText.Render(system) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *model) renderSettings() string {
	autoHelp := "realtime auto-chat between agents"
	if m.cfg.Mode != config.ModeRealtime {
		autoHelp = "only takes effect with --mode realtime"
	}
	rows := []struct {
		label string
		value string
		help  string
	}{
		settingUserName:        {"User Name", m.prefs.UserName, "display name for your messages"},
		settingAccentColor:     {"Accent Color", m.prefs.AccentColor, "hex color, e.g. #05ffa1"},
		settingBackgroundColor: {"Background Color", m.prefs.BackgroundColor, "hex color, e.g. #120924"},
		settingBackgroundImage: {"Background Image", nullCoalesce(m.prefs.BackgroundImage, "(none)"), "kept with your preferences for the web client"},
		settingTurns:           {"Turns", fmt.Sprintf("%d", m.cfg.Turns), "agent turns per message (0-20)"},
		settingRevealDelay:     {"Reveal Delay", m.reveal.Delay.String(), "pause between revealed replies"},
		settingAutoChat:        {"Auto Chat", onOff(m.autoChat), autoHelp},
	}
	var b strings.Builder
	b.WriteString(m.theme.helpText.Render("Use ↑/↓ to select, Enter to edit text, ←/→ (or -/+) to change values."))
	b.WriteString("\n\n")
	for i, row := range rows {
		labelStyle := m.theme.settingKey
		valueStyle := m.theme.settingValue
		prefix := "  "
		if i == m.settingsIndex {
			labelStyle = m.theme.settingPick
			valueStyle = m.theme.settingPick
			prefix = "▶ "
		}
		value := row.value
		if i == m.settingsIndex && m.prompt == promptSetting {
			value = m.editor.View()
		}
		b.WriteString(prefix + labelStyle.Render(fmt.Sprintf("%-18s", row.label)) + " " + valueStyle.Render(value) + "\n")
		b.WriteString("   " + m.theme.helpText.Render(row.help) + "\n")
	}
	b.WriteString("\nPreferences file: " + nullCoalesce(m.prefsPath, "(not saved)"))
	return strings.TrimSpace(b.String())
}

func (m *model) renderHelp() string {
	lines := []string{
		"Core Keys",
		"- Tab / Shift+Tab: switch views",
		"- Enter: send message (Chat tab)",
		"- Esc in chat: quit confirmation; elsewhere: back to chat",
		"- Timeline scroll: PgUp/PgDn, Up/Down (input empty), Home/End, mouse wheel",
		"- Ctrl+C: quit",
		"",
		"Roster",
		"- a add a generic assistant · d remove the selected agent",
		"- ←/→ pick a field · Enter edit it (every keystroke syncs)",
		"- +/- step talkativeness (0.1-3.0) or response_length (10-300)",
		"",
		"Components",
		"- Enter detail · i install (replaces roster and history)",
		"- s save current roster + transcript · S snapshot the backend's roster",
		"- u upload .json .jsonc .yaml · e export for editing · x delete",
		"",
		"Slash Commands",
		"- /turns <0-20>",
		"- /auto on|off (realtime)",
		"- /export [path.html]",
		"- /history",
		"- /clear",
		"- /help",
		"- /quit",
	}
	return m.theme.helpText.Render(strings.Join(lines, "\n"))
}

func (m *model) renderInput() string {
	contentWidth := maxInt(40, m.width-4)
	if m.prompt == promptSaveName || m.prompt == promptSnapshotName || m.prompt == promptUploadPath {
		return m.theme.inputPanel.Width(contentWidth).Render(m.editor.View())
	}
	if m.activeTab != tabChat {
		return m.theme.inputPanel.Width(contentWidth).Render(m.theme.helpText.Render("Input disabled outside Chat tab. Press Tab to return."))
	}
	inputView := m.input.View()
	if m.inflight {
		inputView = m.spinner.View() + " waiting for replies... " + inputView
	}
	return m.theme.inputPanel.Width(contentWidth).Render(inputView)
}

func (m *model) renderFooter() string {
	contentWidth := maxInt(40, m.width-4)
	statusStyle := m.theme.status
	lower := strings.ToLower(m.statusLine)
	if strings.Contains(lower, "failed") || strings.Contains(lower, "error") {
		statusStyle = m.theme.errorStatus
	}
	line := statusStyle.Render(compactSingleLine(m.statusLine, 180))
	hints := m.theme.helpText.Render("Keys: Tab switch view · Enter send · PgUp/PgDn scroll · Esc quit prompt · Ctrl+C quit")
	return m.theme.footer.Width(contentWidth).Render(line + "\n" + hints)
}

func (m *model) renderModal(title, subtitle, yes, no string) string {
	canvasWidth := maxInt(40, m.width-4)
	canvasHeight := maxInt(12, m.height-4)
	modalWidth := clampInt(int(float64(canvasWidth)*0.56), 32, 78)
	if modalWidth > canvasWidth-2 {
		modalWidth = maxInt(32, canvasWidth-2)
	}
	body := strings.Join([]string{
		m.theme.errorStatus.Render(title),
		m.theme.helpText.Render(subtitle),
		"",
		m.theme.settingPick.Render(yes) + "    " + m.theme.helpText.Render(no),
	}, "\n")
	panel := m.theme.modalFrame.Width(modalWidth).Render(body)
	return lipgloss.Place(
		canvasWidth,
		canvasHeight,
		lipgloss.Center,
		lipgloss.Center,
		panel,
		lipgloss.WithWhitespaceBackground(m.theme.background),
	)
}

// compactTimelineMessage folds blank-line runs and caps long replies so one
// message cannot take over the viewport.
func compactTimelineMessage(text string, maxLines int, maxChars int) string {
	normalized := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if normalized == "" {
		return ""
	}
	rawLines := strings.Split(normalized, "\n")
	lines := make([]string, 0, len(rawLines))
	lastBlank := false
	for _, line := range rawLines {
		trimmed := strings.TrimRight(line, " \t")
		blank := strings.TrimSpace(trimmed) == ""
		if blank && lastBlank {
			continue
		}
		lines = append(lines, trimmed)
		lastBlank = blank
	}
	if maxLines > 0 && len(lines) > maxLines {
		hidden := len(lines) - maxLines
		lines = append(lines[:maxLines], fmt.Sprintf("[... %d lines hidden]", hidden))
	}
	joined := strings.TrimSpace(strings.Join(lines, "\n"))
	if maxChars > 0 && ansi.StringWidth(joined) > maxChars {
		return strings.TrimSpace(truncate(joined, maxChars-18) + "\n[... truncated]")
	}
	return joined
}
