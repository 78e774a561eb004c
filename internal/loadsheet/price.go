package loadsheet

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Price is the parse result of a price cell.
type Price struct {
	Amount float64
	Valid  bool
}

// ParsePrice parses a numeric price. Blank, non-numeric and non-finite values
// yield an invalid Price.
func ParsePrice(s string) Price {
	s = strings.TrimSpace(s)
	if s == "" {
		return Price{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Price{}
	}
	return Price{Amount: v, Valid: true}
}

// FormatPrice renders a valid price as dollars with thousands separators and
// two decimals, e.g. "$1,234.50". Invalid prices render as NotAvailable.
func FormatPrice(p Price) string {
	if !p.Valid {
		return NotAvailable
	}

	sign := ""
	amount := p.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	fixed := strconv.FormatFloat(amount, 'f', 2, 64)
	whole, frac, _ := strings.Cut(fixed, ".")
	n, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return "$" + sign + fixed
	}
	if n.Sign() == 0 && frac == "00" {
		sign = ""
	}
	return "$" + sign + humanize.BigComma(n) + "." + frac
}
