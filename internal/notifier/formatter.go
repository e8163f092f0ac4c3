package notifier

import (
	"strings"
	"unicode/utf8"

	"PriceTracker/internal/model"
)

const (
	// MaxRangeEntries caps the rows of a range table posted to chat.
	MaxRangeEntries = 10
	// MaxTableChars is the character budget of one rendered table block.
	MaxTableChars = 3000

	columnPadding = 4
	codeFence     = "```"
)

// RenderedTable is a fixed-width table ready to post as a chat message.
type RenderedTable struct {
	Text      string
	Rows      int
	Dropped   int  // entries left out by the entry cap or the character budget
	Truncated bool // the character budget removed rows
}

// RenderHomeRows renders the canonical price rows of the home surface.
func RenderHomeRows(board *model.PriceBoard) string {
	var b strings.Builder
	for i, k := range model.CanonicalKeys() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("||" + string(k) + "||" + board.Get(k).Rupees() + "||")
	}
	return b.String()
}

// RenderRangeTable renders at most MaxRangeEntries entries, group by group
// in upstream order, as a fixed-width table. Rows are dropped from the end
// until the block fits MaxTableChars.
func RenderRangeTable(groups *model.RangeGroups) RenderedTable {
	entries := groups.Flatten()
	total := len(entries)
	if len(entries) > MaxRangeEntries {
		entries = entries[:MaxRangeEntries]
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{string(e.Name), e.Date, "₹ " + e.Price.String() + "/gm"}
	}
	return renderWithinBudget([]string{"Name", "Date", "Price"}, rows, total)
}

// RenderCurrentTable renders the canonical prices as a fixed-width table.
func RenderCurrentTable(board *model.PriceBoard) RenderedTable {
	keys := model.CanonicalKeys()
	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{string(k), board.Get(k).Rupees()}
	}
	return renderWithinBudget([]string{"Name", "Price"}, rows, len(rows))
}

func renderWithinBudget(headers []string, rows [][]string, total int) RenderedTable {
	text := renderFixedWidth(headers, rows)
	truncated := false
	for utf8.RuneCountInString(text) > MaxTableChars && len(rows) > 0 {
		rows = rows[:len(rows)-1]
		text = renderFixedWidth(headers, rows)
		truncated = true
	}
	return RenderedTable{
		Text:      text,
		Rows:      len(rows),
		Dropped:   total - len(rows),
		Truncated: truncated,
	}
}

// columnWidths returns, per column, the widest cell or header plus padding.
func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range widths {
		widths[i] += columnPadding
	}
	return widths
}

func renderFixedWidth(headers []string, rows [][]string) string {
	widths := columnWidths(headers, rows)

	separator := make([]string, len(widths))
	for i, w := range widths {
		separator[i] = strings.Repeat("-", w)
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, joinRow(headers, widths), joinRow(separator, widths))
	for _, row := range rows {
		lines = append(lines, joinRow(row, widths))
	}
	return codeFence + strings.Join(lines, "\n") + codeFence
}

func joinRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		padded[i] = padRight(cell, widths[i])
	}
	return "| " + strings.Join(padded, " | ") + " |"
}

func padRight(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
