package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatCurrencyClampsTinyAmounts(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "0", want: "0.00 gp"},
		{in: "0.004", want: "0.01 gp"},
		{in: "12.5", want: "12.50 gp"},
		{in: "7.126", want: "7.13 gp"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := FormatCurrency(decimal.RequireFromString(tt.in), "gp", "en")
			if got != tt.want {
				t.Fatalf("FormatCurrency(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseCurrencySeparators(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "1,234.56", want: "1234.56"},
		{in: "1.234,56", want: "1234.56"},
		{in: "12,5", want: "12.5"},
		{in: "gp 40", want: "40"},
		{in: "-3.25 gp", want: "-3.25"},
		{in: "12.", want: "12"},
		{in: ".5", want: "0.5"},
		{in: "abc", want: "0"},
		{in: "", want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseCurrency(tt.in)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("ParseCurrency(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, locale := range []string{"en", "de", "fr"} {
		for cents := int64(0); cents <= 250_000_000; cents = cents*3 + 1 {
			x := decimal.New(cents, -2)
			got := ParseCurrency(FormatCurrency(x, "gp", locale))
			if !got.Equal(x) {
				t.Fatalf("%s: round trip of %s gave %s", locale, x, got)
			}
		}
		for _, v := range []string{"90071992547409.93", "123456789012345.67", "9007199254740993.01"} {
			x := decimal.RequireFromString(v)
			got := ParseCurrency(FormatCurrency(x, "gp", locale))
			if !got.Equal(x) {
				t.Fatalf("%s: round trip of %s gave %s", locale, x, got)
			}
		}
	}
}

func TestFormatCurrencyLargeAmountKeepsCents(t *testing.T) {
	got := FormatCurrency(decimal.RequireFromString("90071992547409.93"), "gp", "en")
	if got != "90,071,992,547,409.93 gp" {
		t.Fatalf("FormatCurrency = %q", got)
	}
	got = FormatCurrency(decimal.RequireFromString("-0.5"), "", "en")
	if got != "-0.50" {
		t.Fatalf("FormatCurrency(-0.5) = %q", got)
	}
}
