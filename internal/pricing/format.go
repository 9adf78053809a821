package pricing

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var mxPrinter = message.NewPrinter(language.MustParse("es-MX"))

// FormatCurrency renders an amount as whole Mexican pesos, e.g. "$34,999".
func FormatCurrency(amount Money) string {
	if amount < 0 {
		return "-$" + mxPrinter.Sprintf("%d", -amount)
	}
	return "$" + mxPrinter.Sprintf("%d", amount)
}
