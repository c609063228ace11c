package visualization

import (
	"strings"
)

// ParseMarkdownTable extracts headers and rows from pipe-delimited text.
//
// Only lines containing '|' are considered. The first such line is the
// header when the next one is a separator of dashes/colons. Without a
// separator the first line is still taken as header if none of its cells is
// numeric; otherwise the block is ambiguous and ok is false.
func ParseMarkdownTable(text string) (headers []string, rows [][]string, ok bool) {
	var lines [][]string
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "|") {
			continue
		}
		lines = append(lines, splitPipeRow(line))
	}
	if len(lines) < 2 {
		return nil, nil, false
	}

	first := lines[0]
	if isSeparatorRow(first) {
		return nil, nil, false
	}

	hasSeparator := isSeparatorRow(lines[1])
	if !hasSeparator {
		for _, cell := range first {
			if _, numeric := ParseNumber(cell); numeric {
				return nil, nil, false
			}
		}
	}

	for _, cells := range lines[1:] {
		if isSeparatorRow(cells) {
			continue
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil, nil, false
	}
	return first, rows, true
}

func splitPipeRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")

	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// isSeparatorRow is true when every cell is made of dashes and colons
// and contains at least one dash, e.g. "---", ":--:".
func isSeparatorRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if c == "" || !strings.Contains(c, "-") {
			return false
		}
		for _, r := range c {
			if r != '-' && r != ':' {
				return false
			}
		}
	}
	return true
}

// realignRow fixes rows where extraction emitted a placeholder column before
// the label: ["-", "Bank", "1,100", "900"] under three headers becomes
// ["Bank", "1,100", "900"]. Only rows exactly one cell wider than the
// headers are touched.
func realignRow(headers, row []string) []string {
	if len(headers) == 0 || len(row) != len(headers)+1 {
		return row
	}
	if isBlank(headers[0]) {
		// the table really has a leading unnamed column
		return row
	}
	if !isPlaceholder(row[0]) || !looksLikeLabel(row[1]) {
		return row
	}
	return row[1:]
}

// reconcileRow pads with "" or truncates so the row has width cells.
func reconcileRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

// buildTable normalizes raw headers/rows into a Table.
func buildTable(headers []string, rows [][]string) *Table {
	cleanHeaders := make([]string, len(headers))
	for i, h := range headers {
		cleanHeaders[i] = strings.TrimSpace(h)
	}

	width := len(cleanHeaders)
	cleanRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		trimmed := make([]string, len(row))
		for i, c := range row {
			trimmed[i] = strings.TrimSpace(c)
		}
		cleanRows = append(cleanRows, reconcileRow(realignRow(cleanHeaders, trimmed), width))
	}

	return &Table{
		Headers:        cleanHeaders,
		Rows:           cleanRows,
		NumericColumns: numericColumns(width, cleanRows),
		TotalRows:      totalRows(cleanRows),
	}
}
