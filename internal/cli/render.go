package cli

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finscore/internal/model"
)

var active = FlexokiDark

// Styles, rebuilt by SetTheme.
var (
	titleStyle  lipgloss.Style
	headerStyle lipgloss.Style
	valueStyle  lipgloss.Style
	mutedStyle  lipgloss.Style
	dimStyle    lipgloss.Style
	goodStyle   lipgloss.Style
	warnStyle   lipgloss.Style
	badStyle    lipgloss.Style
	borderColor lipgloss.Color
)

func init() { buildStyles() }

func buildStyles() {
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(active.TextPrimary).Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(active.Accent)
	valueStyle = lipgloss.NewStyle().Foreground(active.TextPrimary)
	mutedStyle = lipgloss.NewStyle().Foreground(active.TextMuted)
	dimStyle = lipgloss.NewStyle().Foreground(active.TextDim)
	goodStyle = lipgloss.NewStyle().Foreground(active.Green)
	warnStyle = lipgloss.NewStyle().Foreground(active.Orange)
	badStyle = lipgloss.NewStyle().Foreground(active.Red)
	borderColor = active.Border
}

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, auto-calculated if nil
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows. A row holding
// the single cell "---" renders as a separator. Columns after the first are
// right-aligned.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}

	widths := make([]int, numCols)
	if t.Widths != nil {
		copy(widths, t.Widths)
	} else {
		for i, h := range t.Headers {
			widths[i] = max(widths[i], lipgloss.Width(h))
		}
		for _, row := range t.Rows {
			for i, cell := range row {
				if i < numCols {
					widths[i] = max(widths[i], lipgloss.Width(cell))
				}
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right))
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")

	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			b.WriteString(headerStyle.Render(" " + pad(h, widths[i], false) + " "))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
		rule("├", "┼", "┤")
	}

	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			rule("├", "┼", "┤")
			continue
		}

		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(valueStyle.Render(" " + pad(cell, widths[i], i > 0) + " "))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	rule("╰", "┴", "╯")
	return b.String()
}

// pad pads s to w display cells. Cells may already carry ANSI styling, so
// fmt width verbs can't be used.
func pad(s string, w int, right bool) string {
	gap := w - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// RenderProgressBar renders a simple text progress bar.
func RenderProgressBar(current, total int, width int) string {
	if total <= 0 {
		return ""
	}

	pct := math.Min(float64(current)/float64(total), 1)
	filled := min(int(pct*float64(width)), width)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %s/%s",
		mutedStyle.Render(bar),
		FormatNumber(int64(current)),
		FormatNumber(int64(total)),
	)
}

// RenderHorizontalBar renders a horizontal bar chart entry.
func RenderHorizontalBar(label string, value, maxValue float64, maxWidth int) string {
	if maxValue <= 0 {
		return fmt.Sprintf("  %s", label)
	}
	barLen := max(0, min(int(value/maxValue*float64(maxWidth)), maxWidth))
	return fmt.Sprintf("  %s %s", label, headerStyle.Render(strings.Repeat("█", barLen)))
}

// RenderGauge renders a 0-100 score as a colored bar. higherIsBetter picks
// whether high values are green (health) or red (risk).
func RenderGauge(value float64, width int, higherIsBetter bool) string {
	v := model.Clamp(value, 0, 100)
	filled := int(math.Round(v / 100 * float64(width)))

	goodness := v
	if !higherIsBetter {
		goodness = 100 - v
	}
	style := badStyle
	switch {
	case goodness >= 60:
		style = goodStyle
	case goodness >= 40:
		style = warnStyle
	}
	return style.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled))
}

// RenderScore renders a score headline and its factors, largest first.
func RenderScore(title string, s model.ScoreResult, higherIsBetter bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s  %s  %s %s\n",
		headerStyle.Render(title),
		RenderGauge(s.Value, 30, higherIsBetter),
		valueStyle.Render(fmt.Sprintf("%.1f", s.Value)),
		mutedStyle.Render(FormatLabel(s.Level)),
	)

	if len(s.Factors) == 0 {
		return b.String()
	}
	names := make([]string, 0, len(s.Factors))
	for k := range s.Factors {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.Factors[names[i]] != s.Factors[names[j]] {
			return s.Factors[names[i]] > s.Factors[names[j]]
		}
		return names[i] < names[j]
	})

	rows := make([][]string, 0, len(names))
	for _, k := range names {
		rows = append(rows, []string{FormatLabel(k), fmt.Sprintf("%.2f", s.Factors[k])})
	}
	b.WriteString(RenderTable(Table{Headers: []string{"Factor", "Points"}, Rows: rows}))
	return b.String()
}

// RenderRecommendations renders a numbered list of recommendations.
func RenderRecommendations(recs []model.Recommendation) string {
	if len(recs) == 0 {
		return "  " + mutedStyle.Render("No recommendations.") + "\n"
	}

	var b strings.Builder
	for i, r := range recs {
		style := mutedStyle
		switch r.Priority {
		case model.PriorityUrgent:
			style = badStyle
		case model.PriorityHigh:
			style = warnStyle
		}
		fmt.Fprintf(&b, "  %d. %s %s\n", i+1, style.Render("["+string(r.Priority)+"]"), valueStyle.Render(r.Title))
		fmt.Fprintf(&b, "     %s\n", mutedStyle.Render(r.Description))
		fmt.Fprintf(&b, "     %s %s\n", dimStyle.Render("→"), r.Action)
	}
	return b.String()
}

// StatusText colors a budget status.
func StatusText(s model.BudgetStatus) string {
	switch s {
	case model.BudgetOverBudget:
		return badStyle.Render(FormatLabel(string(s)))
	case model.BudgetOnTrack:
		return warnStyle.Render(FormatLabel(string(s)))
	default:
		return goodStyle.Render(FormatLabel(string(s)))
	}
}
