// Package rupiah formats Indonesian Rupiah amounts for invoices.
package rupiah

import (
	"strconv"
	"strings"
)

var units = []string{"", "satu", "dua", "tiga", "empat", "lima", "enam", "tujuh", "delapan", "sembilan", "sepuluh", "sebelas"}

// Format renders n with dot thousand separators, e.g. "Rp 1.750.000".
func Format(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}

	if neg {
		return "Rp -" + b.String()
	}
	return "Rp " + b.String()
}

// Terbilang spells n out in Indonesian words, e.g. 300000 -> "tiga ratus ribu".
func Terbilang(n int64) string {
	if n == 0 {
		return "nol"
	}
	if n < 0 {
		return "minus " + Terbilang(-n)
	}
	return strings.Join(strings.Fields(spell(n)), " ")
}

func spell(n int64) string {
	switch {
	case n < 12:
		return units[n]
	case n < 20:
		return spell(n-10) + " belas"
	case n < 100:
		return spell(n/10) + " puluh " + spell(n%10)
	case n < 200:
		return "seratus " + spell(n-100)
	case n < 1000:
		return spell(n/100) + " ratus " + spell(n%100)
	case n < 2000:
		return "seribu " + spell(n-1000)
	case n < 1_000_000:
		return spell(n/1000) + " ribu " + spell(n%1000)
	case n < 1_000_000_000:
		return spell(n/1_000_000) + " juta " + spell(n%1_000_000)
	case n < 1_000_000_000_000:
		return spell(n/1_000_000_000) + " miliar " + spell(n%1_000_000_000)
	default:
		return spell(n/1_000_000_000_000) + " triliun " + spell(n%1_000_000_000_000)
	}
}
