package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pqdesk/pqdesk/internal/session"
)

const schemaPanelWidth = 28

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}
	if m.sess.Len() == 0 {
		return m.viewEmpty()
	}
	return m.viewTable()
}

func (m Model) viewEmpty() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(" pqdesk"))
	b.WriteString(dimStyle.Render("  no files open"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(" error: "+m.err.Error()) + "\n\n")
	}

	if len(m.recentList) > 0 {
		b.WriteString(statusStyle.Render(" recent files") + "\n")
		for i, f := range m.recentList {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, f))
		}
		b.WriteString("\n")
	}

	if m.mode == modePrompt {
		b.WriteString(" " + m.promptInput.View() + "\n")
	}
	b.WriteString(dimStyle.Render(" o open file  1-9 open recent  q quit"))
	return b.String()
}

func (m Model) viewTable() string {
	tab := m.sess.Active()
	c := m.cur()

	gridWidth := m.width
	if m.showSchema {
		gridWidth -= schemaPanelWidth
	}

	var b strings.Builder
	b.WriteString(m.renderTabBar())
	b.WriteString("\n")

	grid := m.renderGrid(tab, c, gridWidth)
	if m.showSchema {
		panel := m.renderSchemaPanel(tab)
		grid = lipgloss.JoinHorizontal(lipgloss.Top, grid, panel)
	}
	b.WriteString(grid)
	b.WriteString("\n")

	b.WriteString(" " + m.sqlInput.View())
	b.WriteString("\n")

	b.WriteString(m.renderStatus(tab, c))
	b.WriteString("\n")

	if m.mode == modePrompt {
		b.WriteString(m.renderPrompt())
	} else {
		b.WriteString(m.renderHelp())
	}
	return b.String()
}

func (m Model) renderTabBar() string {
	var parts []string
	parts = append(parts, titleStyle.Render(" pqdesk "))
	for i, t := range m.sess.Tabs() {
		name := t.Name()
		if t.Dirty {
			name += "*"
		}
		label := fmt.Sprintf("%d:%s", i+1, name)
		if i == m.sess.ActiveIndex() {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return strings.Join(parts, "")
}

func (m Model) renderGrid(tab *session.Tab, c *cursor, width int) string {
	var b strings.Builder

	if tab.Cache.ColCount() == 0 {
		b.WriteString(dimStyle.Render(" (no columns)"))
		return b.String()
	}

	widths := computeColWidths(tab.Cache)

	// rows available: total minus tab bar, header, separator, sql
	// input, status, help.
	dataHeight := m.height - 6
	if dataHeight < 1 {
		dataHeight = 1
	}

	if c.cy < c.scrollY {
		c.scrollY = c.cy
	}
	if c.cy >= c.scrollY+dataHeight {
		c.scrollY = c.cy - dataHeight + 1
	}

	visStart, visEnd := visibleColRange(widths, c.scrollX, c.cx, width-2)
	c.scrollX = visStart

	// header with sort arrows
	var hdr strings.Builder
	for ci := visStart; ci < visEnd; ci++ {
		w := widths[ci]
		name := tab.Cache.Columns[ci].Name
		if ci == tab.SortCol {
			if tab.SortDesc {
				name += " ▼"
			} else {
				name += " ▲"
			}
		}
		name = truncCell(name, w)
		hdr.WriteString(headerStyle.Render(fmt.Sprintf(" %-*s ", w, name)))
		if ci < visEnd-1 {
			hdr.WriteString(dimStyle.Render("|"))
		}
	}
	b.WriteString(hdr.String())
	b.WriteString("\n")

	var sep strings.Builder
	for ci := visStart; ci < visEnd; ci++ {
		sep.WriteString(dimStyle.Render(strings.Repeat("─", widths[ci]+2)))
		if ci < visEnd-1 {
			sep.WriteString(dimStyle.Render("┼"))
		}
	}
	b.WriteString(sep.String())
	b.WriteString("\n")

	endRow := c.scrollY + dataHeight
	if endRow > tab.Cache.RowCount() {
		endRow = tab.Cache.RowCount()
	}
	for ri := c.scrollY; ri < endRow; ri++ {
		for ci := visStart; ci < visEnd; ci++ {
			w := widths[ci]
			col := tab.Cache.Columns[ci]

			var display string
			if m.mode == modeEdit && ri == c.cy && ci == c.cx {
				display = m.editBuf + "_"
				if r := []rune(display); len(r) > w {
					display = string(r[len(r)-w:])
				}
				display = fmt.Sprintf("%-*s", w, display)
			} else {
				v, _ := tab.Cache.Cell(ri, ci)
				display = alignCell(formatCell(v), col.Type, w)
			}

			cell := fmt.Sprintf(" %s ", display)
			if ri == c.cy && ci == c.cx {
				b.WriteString(cursorStyle.Render(cell))
			} else {
				b.WriteString(cell)
			}
			if ci < visEnd-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString("\n")
	}
	if tab.Cache.RowCount() == 0 {
		b.WriteString(dimStyle.Render(" (0 rows)"))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderSchemaPanel(tab *session.Tab) string {
	var b strings.Builder
	b.WriteString(statusStyle.Render("columns"))
	b.WriteString("\n")
	for _, col := range tab.Schema {
		null := ""
		if col.Nullable {
			null = " ?"
		}
		b.WriteString(fmt.Sprintf("%s %s%s\n", col.Name, dimStyle.Render(col.Type), null))
	}
	return panelStyle.Width(schemaPanelWidth - 2).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderStatus(tab *session.Tab, c *cursor) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%s %s", tab.Name(), humanSize(tab.Engine.SizeBytes())))
	parts = append(parts, fmt.Sprintf("%d rows x %d cols", tab.TotalRows, len(tab.Schema)))
	parts = append(parts, fmt.Sprintf("page %d/%d", tab.Page, tab.TotalPages()))
	parts = append(parts, fmt.Sprintf("[%d,%d]", c.cy+1, c.cx+1))
	if tab.Dirty {
		parts = append(parts, dirtyStyle.Render("unsaved"))
	}
	if m.pending > 0 {
		parts = append(parts, statusStyle.Render("running…"))
	}

	line := " " + strings.Join(parts, "  ")
	if m.err != nil {
		line += "  " + errorStyle.Render(m.err.Error())
	} else if m.status != "" {
		line += "  " + statusStyle.Render(m.status)
	}
	return line
}

func (m Model) renderPrompt() string {
	switch m.prompt {
	case promptCloseDirty:
		return promptStyle.Render(" unsaved changes - close tab? (y)es / (s)ave first / (n)o")
	case promptQuitDirty:
		return promptStyle.Render(" unsaved changes - quit anyway? (y/n)")
	default:
		return " " + m.promptInput.View()
	}
}

func (m Model) renderHelp() string {
	switch m.mode {
	case modeEdit:
		return dimStyle.Render(" enter commit  tab commit+next  esc cancel")
	case modeSQL:
		return dimStyle.Render(" enter run  esc cancel")
	default:
		return dimStyle.Render(" hjkl move  enter edit  a/d row  s sort  / sql  r reset  [ ] page  ctrl+s save  S save as  e/E csv  i schema  o open  tab switch  ctrl+w close  q quit")
	}
}
