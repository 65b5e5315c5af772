package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/inkreader/internal/logtail"
	"github.com/five82/inkreader/internal/render"
	"github.com/five82/inkreader/internal/session"
)

const panelWidth = 52

// View implements tea.Model.
func (m Model) View() string {
	styles := m.theme.Styles()

	header := styles.Header.Render("inkreader simulator")
	if m.deviceID != "" {
		header += styles.MutedText.Render("  " + m.deviceID)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderPanel(styles),
		"  ",
		m.renderDetails(styles),
	)

	parts := []string{header, "", body}
	if len(m.logs) > 0 {
		parts = append(parts, "", m.renderLogs(styles))
	}
	parts = append(parts, "", m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderLogs(styles Styles) string {
	width := m.width
	if width <= 0 {
		width = 100
	}
	lines := make([]string, 0, len(m.logs))
	for _, raw := range m.logs {
		entry := logtail.Parse(raw)
		style := styles.MutedText
		switch entry.Level {
		case "WARN":
			style = styles.WarningText
		case "ERROR":
			style = styles.DangerText
		case "INFO":
			style = styles.Text
		}
		text := entry.Message
		if entry.Attrs != "" {
			text += "  " + entry.Attrs
		}
		if entry.Level != "" {
			text = fmt.Sprintf("%-5s %s", entry.Level, text)
		}
		lines = append(lines, style.Render(truncate(text, width)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPanel(styles Styles) string {
	screen := m.shown
	if !screen.HasPage {
		return styles.Panel.Width(panelWidth).Render(m.blankPage())
	}

	req := screen.Page
	lines := []string{
		render.StatusLine(req.Status, req.ShowConnection),
		"",
		centre(fmt.Sprintf("page %d of %d", req.PageIndex+1, req.Status.PageCount), panelWidth-12),
	}
	page := strings.Join(lines, "\n")

	if req.ShowNavigation {
		page = lipgloss.JoinHorizontal(lipgloss.Top, page, "  ", chromeColumn(styles, req.Status, screen))
	}
	if line := indicatorLine(styles, screen); line != "" {
		page += "\n\n" + line
	}
	return styles.Panel.Width(panelWidth).Render(page)
}

func (m Model) blankPage() string {
	s := session.Fresh()
	if m.snapshot.HasSession {
		s = m.snapshot.Session
	}
	text := render.StatusLine(s, true) + "\n\n" + centre("waiting for pages", panelWidth-2)
	if line := indicatorLine(m.theme.Styles(), m.shown); line != "" {
		text += "\n\n" + line
	}
	return text
}

func chromeColumn(styles Styles, s session.Session, screen Screen) string {
	middle := " + "
	if s.Queued() {
		middle = fmt.Sprintf("%2d ", s.QueueIndex)
	}
	busy := render.Slot(-1)
	if screen.Indicated && screen.Indicator.Kind == render.IndicatorBusy {
		busy = screen.Indicator.Slot
	}
	button := func(slot render.Slot, label string) string {
		if slot == busy {
			label = " ~ "
		}
		return styles.Chrome.Render(label)
	}
	return lipgloss.JoinVertical(lipgloss.Center,
		button(render.SlotPrev, " < "),
		"",
		button(render.SlotMiddle, middle),
		"",
		button(render.SlotNext, " > "),
	)
}

func indicatorLine(styles Styles, screen Screen) string {
	if !screen.Indicated {
		return ""
	}
	ind := screen.Indicator
	switch ind.Kind {
	case render.IndicatorBusy:
		return styles.WarningText.Render("loading...")
	case render.IndicatorError:
		msg := "error"
		if ind.Err != nil {
			msg = ind.Err.Error()
		}
		return styles.DangerText.Render(msg)
	default:
		return ""
	}
}

func (m Model) renderDetails(styles Styles) string {
	snap := m.snapshot
	view := snap.View()

	row := func(label, value string, style lipgloss.Style) string {
		return styles.MutedText.Render(fmt.Sprintf("%-14s", label)) + style.Render(value)
	}
	flag := func(on bool) (string, lipgloss.Style) {
		if on {
			return "up", styles.SuccessText
		}
		return "down", styles.DangerText
	}

	var rows []string
	rows = append(rows, styles.AccentText.Render("Device"))
	rows = append(rows, row("page", indexText(view.CurrentPage, view.PageCount), styles.Text))
	rows = append(rows, row("cached", fmt.Sprintf("%d", view.CachedPages), styles.Text))
	queue := "-"
	if view.QueueIndex >= 0 {
		queue = fmt.Sprintf("#%d", view.QueueIndex)
	}
	rows = append(rows, row("queue", queue, styles.Text))
	if view.Downloading {
		rows = append(rows, row("download", "in progress", styles.WarningText))
	}

	rows = append(rows, "", styles.AccentText.Render("Links"))
	value, style := flag(view.ChannelLinkUp)
	rows = append(rows, row("channel", value, style))
	value, style = flag(view.ChannelRegistered)
	rows = append(rows, row("registered", value, style))
	value, style = flag(view.NetworkLinkUp)
	rows = append(rows, row("network", value, style))

	if view.LastError != "" {
		rows = append(rows, "", styles.AccentText.Render("Last error"))
		rows = append(rows, styles.DangerText.Render(truncate(view.LastError, 40)))
	}
	if !snap.LastUpdated.IsZero() {
		rows = append(rows, "", styles.MutedText.Render("updated "+snap.LastUpdated.Format("15:04:05")))
	}
	return strings.Join(rows, "\n")
}

func indexText(current, count int) string {
	if count <= 0 || current < 0 {
		return "-/-"
	}
	return fmt.Sprintf("%d/%d", current+1, count)
}

func centre(text string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, text)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
