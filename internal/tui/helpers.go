package tui

import (
	"fmt"
	"time"

	"github.com/guregu/null/v5"
)

// formatMoney formats an amount the Swiss way: "CHF 1'234.50"
func formatMoney(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	s := fmt.Sprintf("%.2f", amount)

	dotPos := len(s) - 3
	intPart := s[:dotPos]
	decPart := s[dotPos:]

	result := make([]byte, 0, len(intPart)+len(intPart)/3)
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result = append(result, '\'')
		}
		result = append(result, byte(c))
	}

	prefix := "CHF "
	if negative {
		prefix = "CHF -"
	}
	return prefix + string(result) + decPart
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("02.01.2006")
}

func formatNullDate(t null.Time) string {
	if !t.Valid {
		return "-"
	}
	return formatDate(t.Time)
}

// truncateStr truncates a string to maxLen runes with ellipsis
func truncateStr(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
