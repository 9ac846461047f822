package cli

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finscore/internal/model"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"12.5", "$12.50"},
		{"1234.5", "$1,234.50"},
		{"1234567.891", "$1,234,567.89"},
		{"-100", "-$100.00"},
	}
	for _, tt := range tests {
		got := FormatMoney(decimal.RequireFromString(tt.in))
		if got != tt.want {
			t.Errorf("FormatMoney(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := FormatMoneyPtr(nil); got != "-" {
		t.Errorf("FormatMoneyPtr(nil) = %q", got)
	}
}

func TestFormatNumber(t *testing.T) {
	if got := FormatNumber(1234567); got != "1,234,567" {
		t.Errorf("FormatNumber = %q", got)
	}
	if got := FormatNumber(42); got != "42" {
		t.Errorf("FormatNumber = %q", got)
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(120); got != "120.0%" {
		t.Errorf("FormatPercent = %q", got)
	}
	if got := FormatShare(0.255); got != "25.5%" {
		t.Errorf("FormatShare = %q", got)
	}
	if got := FormatSignedPercent(400); got != "+400.0%" {
		t.Errorf("FormatSignedPercent = %q", got)
	}
	if got := FormatSignedPercent(-12.5); got != "-12.5%" {
		t.Errorf("FormatSignedPercent = %q", got)
	}
}

func TestFormatLabel(t *testing.T) {
	tests := map[string]string{
		"over_budget":          "Over Budget",
		"person_concentration": "Person Concentration",
		"excellent":            "Excellent",
		"":                     "",
	}
	for in, want := range tests {
		if got := FormatLabel(in); got != want {
			t.Errorf("FormatLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetLocale_Invalid(t *testing.T) {
	if err := SetLocale("not a locale!!", ""); err == nil {
		t.Error("expected error for bad locale")
	}
	if got := FormatNumber(1000); got != "1,000" {
		t.Errorf("bad locale changed formatting: %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Title:   "Budgets",
		Headers: []string{"Category", "Spent"},
		Rows:    [][]string{{"Food", "$120.00"}, {"---"}, {"Total", "$1,120.00"}},
	})
	for _, want := range []string{"Budgets", "Category", "Food", "$1,120.00", "├", "╰"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if RenderTable(Table{}) != "" {
		t.Error("empty table should render nothing")
	}
}

func TestRenderHorizontalBar(t *testing.T) {
	if got := RenderHorizontalBar("Food", 50, 100, 10); got != "  Food █████" {
		t.Errorf("bar = %q", got)
	}
	if got := RenderHorizontalBar("Food", 1, 0, 10); got != "  Food" {
		t.Errorf("zero max = %q", got)
	}
}

func TestRenderScore(t *testing.T) {
	out := RenderScore("Risk", model.ScoreResult{
		Value:   60,
		Level:   "high",
		Factors: map[string]float64{"overdue_ratio": 20, "exposure": 15},
	}, false)
	if !strings.Contains(out, "60.0") || !strings.Contains(out, "High") {
		t.Errorf("score headline missing:\n%s", out)
	}
	if strings.Index(out, "Overdue Ratio") > strings.Index(out, "Exposure") {
		t.Errorf("factors not sorted by points:\n%s", out)
	}
}

func TestRenderRecommendations(t *testing.T) {
	if !strings.Contains(RenderRecommendations(nil), "No recommendations") {
		t.Error("empty list should say so")
	}
	out := RenderRecommendations([]model.Recommendation{
		{Priority: model.PriorityUrgent, Title: "Fix it", Description: "d", Action: "a"},
	})
	if !strings.Contains(out, "1. [urgent] Fix it") {
		t.Errorf("out = %q", out)
	}
}
