package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var minVisible = decimal.RequireFromString("0.01")

// FormatCurrency renders an amount with two fractional digits, locale
// grouping and the currency symbol. A positive amount below 0.01 shows as
// 0.01 so a real debt or credit never reads as zero.
func FormatCurrency(amount decimal.Decimal, symbol, locale string) string {
	if amount.IsPositive() && amount.LessThan(minVisible) {
		amount = minVisible
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)

	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	abs := rounded.Abs()
	fixed := abs.StringFixed(2)
	text := sign + p.Sprintf("%d", abs.IntPart()) + decimalSeparator(p) + fixed[len(fixed)-2:]
	if symbol == "" {
		return text
	}
	return text + " " + symbol
}

// decimalSeparator reports the separator the printer's locale places
// between whole and fractional digits.
func decimalSeparator(p *message.Printer) string {
	sample := []rune(p.Sprintf("%.1f", 1.5))
	if len(sample) < 3 {
		return "."
	}
	return string(sample[len(sample)-2])
}

// Format renders an amount with the ledger's current symbol and locale.
func (l *Ledger) Format(amount decimal.Decimal) string {
	shop := l.settings.Get()
	return FormatCurrency(amount, shop.CurrencySymbol, shop.CurrencyLocale)
}

// ParseCurrency reads a user-typed amount. Whichever of ',' and '.' appears
// last is the decimal separator; the other is treated as grouping. Anything
// other than digits, separators and a leading minus is dropped. Unparseable
// input yields zero.
func ParseCurrency(text string) decimal.Decimal {
	var b strings.Builder
	negative := false
	seenDigit := false
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			b.WriteRune(r)
		case r == ',' || r == '.':
			b.WriteRune(r)
		case r == '-' && !seenDigit && b.Len() == 0:
			negative = true
		}
	}
	cleaned := b.String()

	decimalSep := strings.LastIndexAny(cleaned, ",.")
	if decimalSep >= 0 {
		intPart := strings.NewReplacer(",", "", ".", "").Replace(cleaned[:decimalSep])
		frac := cleaned[decimalSep+1:]
		if intPart == "" {
			intPart = "0"
		}
		cleaned = intPart
		if frac != "" {
			cleaned += "." + frac
		}
	}
	if cleaned == "" {
		return decimal.Zero
	}

	v, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		v = v.Neg()
	}
	return v
}
