package currency

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
)

// Currencies offered by the search form, in display order.
var supported = []string{"USD", "EUR", "GBP", "INR"}

func Supported() []string {
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

// IsSupported reports whether code is a well-formed ISO 4217 code that is also
// on the allow-list.
func IsSupported(code string) bool {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return false
	}
	for _, s := range supported {
		if unit.String() == s {
			return true
		}
	}
	return false
}

// Symbol returns the CLDR narrow symbol for code, e.g. "$" for USD. It is empty
// for malformed codes and for currencies whose only symbol is the code itself.
func Symbol(code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return ""
	}
	sym := fmt.Sprint(currency.NarrowSymbol(unit))
	if sym == unit.String() {
		return ""
	}
	return sym
}

// Label renders the option text used by the currency selector, e.g. "USD ($)".
func Label(code string) string {
	code = strings.ToUpper(code)
	if s := Symbol(code); s != "" {
		return code + " (" + s + ")"
	}
	return code
}

// Format renders an amount with the currency code and two decimals, used when the
// upstream did not send a preformatted price.
func Format(amount float64, code string) string {
	rounded := math.Round(amount*100) / 100

	negative := rounded < 0
	if negative {
		rounded = -rounded
	}

	str := fmt.Sprintf("%.2f", rounded)
	intPart, frac, _ := strings.Cut(str, ".")
	formatted := addThousandsSeparator(intPart, ",") + "." + frac

	result := strings.ToUpper(code) + " " + formatted
	if negative {
		result = "-" + result
	}

	return result
}

func addThousandsSeparator(s string, sep string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	numSeps := (n - 1) / 3
	result := make([]byte, n+numSeps)

	j := len(result) - 1
	for i := n - 1; i >= 0; i-- {
		result[j] = s[i]
		j--

		pos := n - i
		if pos%3 == 0 && i > 0 {
			result[j] = sep[0]
			j--
		}
	}

	return string(result)
}
