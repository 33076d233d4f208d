package report

import "github.com/dustin/go-humanize"

// Rupees переводит сумму в пайсах в рупии.
func Rupees(paise int64) float64 {
	return float64(paise) / 100
}

// FormatINR форматирует сумму в пайсах как "₹1,234.50".
func FormatINR(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return sign + "₹" + humanize.FormatFloat("#,###.##", Rupees(paise))
}
