// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer  = message.NewPrinter(language.AmericanEnglish)
	titler   = cases.Title(language.AmericanEnglish)
	currency = "$"
)

// SetLocale selects number grouping and the currency symbol. An unparseable
// tag keeps the current locale and returns the error.
func SetLocale(tag, symbol string) error {
	if symbol != "" {
		currency = symbol
	}
	if tag == "" {
		return nil
	}
	t, err := language.Parse(tag)
	if err != nil {
		return fmt.Errorf("locale %q: %w", tag, err)
	}
	printer = message.NewPrinter(t)
	titler = cases.Title(t)
	return nil
}

// FormatMoney formats an amount with the currency symbol and two decimals.
// e.g., 1234.5 -> "$1,234.50", -3 -> "-$3.00"
func FormatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	f, _ := d.Round(2).Float64()
	return sign + currency + printer.Sprintf("%.2f", f)
}

// FormatMoneyPtr formats an optional amount, "-" when absent.
func FormatMoneyPtr(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return FormatMoney(*d)
}

// FormatNumber adds locale separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatPercent formats a value already expressed in percent.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatShare formats a 0-1 ratio as a percentage string.
func FormatShare(f float64) string {
	return FormatPercent(f * 100)
}

// FormatSignedPercent prefixes a percentage with its sign.
func FormatSignedPercent(pct float64) string {
	if pct >= 0 {
		return "+" + FormatPercent(pct)
	}
	return FormatPercent(pct)
}

// FormatDate formats a calendar date as YYYY-MM-DD, "-" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// FormatDayOfWeek returns a 3-letter day abbreviation from a weekday number.
func FormatDayOfWeek(weekday int) string {
	days := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	if weekday >= 0 && weekday < 7 {
		return days[weekday]
	}
	return "???"
}

// FormatLabel turns a snake_case identifier into title case.
// e.g., "over_budget" -> "Over Budget"
func FormatLabel(s string) string {
	return titler.String(strings.ReplaceAll(s, "_", " "))
}
