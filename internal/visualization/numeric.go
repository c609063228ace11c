package visualization

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

var currencySymbols = []string{"$", "€", "£", "¥", "₹"}

var currencyCodes = []string{"USD", "EUR", "GBP", "JPY", "INR", "CAD", "AUD"}

// ParseNumber parses a table cell as a number after stripping currency
// symbols and codes, thousands separators, percent signs and whitespace.
// Accounting parentheses mean negative: "(1,200)" is -1200.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	for _, code := range currencyCodes {
		s = strings.ReplaceAll(s, code, "")
	}
	s = strings.NewReplacer(",", "", "%", "", "−", "-", "(", "", ")", "").Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789.-+eE", r) {
			return 0, false
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// isPlaceholder reports cells extraction uses for "no value".
func isPlaceholder(s string) bool {
	switch strings.TrimSpace(s) {
	case "-", "—", "–", "--", "n/a", "N/A":
		return true
	}
	return false
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == "" || isPlaceholder(s)
}

// isNumericOrCurrency is true for numbers and bare currency markers like "$" or "USD".
func isNumericOrCurrency(s string) bool {
	if _, ok := ParseNumber(s); ok {
		return true
	}
	t := strings.TrimSpace(s)
	for _, sym := range currencySymbols {
		t = strings.ReplaceAll(t, sym, "")
	}
	for _, code := range currencyCodes {
		t = strings.ReplaceAll(t, code, "")
	}
	return strings.TrimSpace(t) == "" && strings.TrimSpace(s) != ""
}

// looksLikeLabel is true for cells carrying letters that are not a number
// or currency token, e.g. an account name.
func looksLikeLabel(s string) bool {
	if isNumericOrCurrency(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// numericColumns returns indexes of columns whose non-blank cells all parse
// as numbers. A column with no non-blank cell is not numeric.
func numericColumns(width int, rows [][]string) []int {
	var out []int
	for col := 0; col < width; col++ {
		seen := 0
		numeric := true
		for _, row := range rows {
			if col >= len(row) || isBlank(row[col]) {
				continue
			}
			seen++
			if _, ok := ParseNumber(row[col]); !ok {
				numeric = false
				break
			}
		}
		if numeric && seen > 0 {
			out = append(out, col)
		}
	}
	return out
}

func totalRows(rows [][]string) []int {
	var out []int
	for i, row := range rows {
		for _, cell := range row {
			if strings.Contains(strings.ToLower(cell), "total") {
				out = append(out, i)
				break
			}
		}
	}
	return out
}
