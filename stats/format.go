// Package stats aggregates ingested match records into the chat-facing stat
// lines and handles placement/ordinal formatting.
package stats

import (
	"fmt"
	"strings"
)

// Ordinal renders n as an English ordinal string. The 11-13 block always
// takes "th" regardless of last digit.
func Ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// FormatPlacement renders a team placement for storage and display. Zero or
// negative placements come from matches where the field was absent upstream
// and normalize to the "-" sentinel.
func FormatPlacement(n int) string {
	if n <= 0 {
		return "-"
	}
	return Ordinal(n)
}

// PlayerName strips the numeric discriminator from a player identity
// ("Name#1234567" -> "Name").
func PlayerName(playerID string) string {
	if i := strings.IndexByte(playerID, '#'); i >= 0 {
		return playerID[:i]
	}
	return playerID
}

func plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

func ratio(num, den int) string {
	if den == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", float64(num)/float64(den))
}
