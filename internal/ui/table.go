package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Column is a table column. Width 0 fits the widest cell.
type Column struct {
	Title string
	Width int
}

// Row holds one cell per column. Cells may already be styled.
type Row []string

// Table renders rows under fixed-width headers.
type Table struct {
	Columns []Column
	Rows    []Row
}

func NewTable(cols []Column) *Table {
	return &Table{Columns: cols}
}

func (t *Table) AddRow(r Row) {
	t.Rows = append(t.Rows, r)
}

// pad fits s into exactly width terminal cells. Escape sequences do not
// count towards the width, and an overlong cell ends in an ellipsis.
func pad(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := ansi.StringWidth(s)
	if w > width {
		s = ansi.Truncate(s, width, "…")
		w = ansi.StringWidth(s)
	}
	return s + strings.Repeat(" ", width-w)
}

// widths resolves every column's width, measuring cells for Width 0.
func (t *Table) widths() []int {
	ws := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		if col.Width > 0 {
			ws[i] = col.Width
			continue
		}
		ws[i] = ansi.StringWidth(col.Title)
		for _, r := range t.Rows {
			if i < len(r) {
				ws[i] = max(ws[i], ansi.StringWidth(r[i]))
			}
		}
	}
	return ws
}

// Render lays the table out as text, one line per row after the header
// and divider.
func (t *Table) Render() string {
	ws := t.widths()

	line := func(cell func(i int) string) string {
		cells := make([]string, len(ws))
		for i := range ws {
			cells[i] = cell(i)
		}
		return strings.Join(cells, " ") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(line(func(i int) string { return StyleHeader.Render(pad(t.Columns[i].Title, ws[i])) }))
	sb.WriteString(line(func(i int) string { return StyleMeta.Render(strings.Repeat("-", ws[i])) }))
	for _, r := range t.Rows {
		sb.WriteString(line(func(i int) string {
			if i >= len(r) {
				return pad("", ws[i])
			}
			return pad(StyleValue.Render(r[i]), ws[i])
		}))
	}
	return sb.String()
}

// KeyValueBlock renders key-value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	keyWidth := 0
	for _, p := range pairs {
		keyWidth = max(keyWidth, len(p[0])+1)
	}
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title) + "\n")
	}
	for _, p := range pairs {
		key := StyleMeta.Render(fmt.Sprintf("%-*s", keyWidth, p[0]+":"))
		sb.WriteString("  " + key + "  " + StyleValue.Render(p[1]) + "\n")
	}
	return StyleBorder.Render(sb.String())
}

// Mark renders a held/missing check mark.
func Mark(ok bool) string {
	if ok {
		return StyleSuccess.Render("✓")
	}
	return StyleError.Render("✗")
}
