package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada/internal/model"
)

// visibleWidth is the number of terminal cells s occupies, ignoring escapes.
func visibleWidth(s string) int { return lipgloss.Width(s) }

// ShortIDLen is how many leading characters of an id the listings show.
const ShortIDLen = 8

// ShortID abbreviates an id for display.
func ShortID(id string) string {
	if len(id) <= ShortIDLen {
		return id
	}
	return id[:ShortIDLen]
}

// ProgressBar renders a Unicode progress bar with percentage.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 5 {
		width = 5
	}
	filled := int(float64(done) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	pct := int(float64(done) / float64(total) * 100)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}

// Panel draws a framed box using the current theme.
func Panel(lines []string) {
	fmt.Fprint(Stdout, PanelString(lines))
}

func PanelString(lines []string) string {
	t := Current()
	maxw := 0
	for _, ln := range lines {
		if w := visibleWidth(ln); w > maxw {
			maxw = w
		}
	}
	var b strings.Builder
	b.WriteString(t.CornerTL + strings.Repeat(t.H, maxw+2) + t.CornerTR + "\n")
	for _, ln := range lines {
		pad := strings.Repeat(" ", maxw-visibleWidth(ln))
		b.WriteString(t.V + " " + ln + pad + " " + t.V + "\n")
	}
	b.WriteString(t.CornerBL + strings.Repeat(t.H, maxw+2) + t.CornerBR + "\n")
	return b.String()
}

// Stats counts done and pending items.
func Stats(items []model.Item) (done, pending int) {
	for _, it := range items {
		if it.Done {
			done++
		} else {
			pending++
		}
	}
	return
}

// ListLines renders one page of todos for the plain listing: header with
// counts, progress bar, one line per item and the page position.
func ListLines(items []model.Item, total, page, pages int) []string {
	t := Current()
	d, p := Stats(items)
	lines := []string{
		fmt.Sprintf("%s  %s %d  %s %d  %s %d",
			C(t.Title, "Todos"),
			C(t.Success, t.SymDone), d,
			C(t.Pending, t.SymPending), p,
			C(t.Accent, "Total"), total,
		),
		C(t.Muted, ProgressBar(d, d+p, 28)),
		"",
	}
	lines = append(lines, ItemLines(items)...)
	lines = append(lines, "")
	if pages > 0 {
		lines = append(lines, C(t.Muted, fmt.Sprintf("page %d/%d", page, pages)))
	}
	lines = append(lines, C(t.Muted, "Tip: add with `todo add \"Buy milk\"`"))
	return lines
}

// ItemLines renders items one per line as "<short id> <box> <content>".
func ItemLines(items []model.Item) []string {
	t := Current()
	if len(items) == 0 {
		return []string{C(t.Muted, "no todos")}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		box, color := t.BoxUnchecked, t.Muted
		if it.Done {
			box, color = t.BoxChecked, t.Success
		}
		content := it.Content
		if utf8.RuneCountInString(content) > 80 {
			content = string([]rune(content)[:77]) + "..."
		}
		out = append(out, fmt.Sprintf("%s %s %s",
			C(dim, ShortID(it.ID)), C(color, box), content))
	}
	return out
}
