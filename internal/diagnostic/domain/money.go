package domain

import "fmt"

// FormatMoney renders rubles as "1.2 млн ₽", "175 тыс ₽" or "900 ₽".
func FormatMoney(amount int64) string {
	switch {
	case amount >= 1_000_000:
		return fmt.Sprintf("%.1f млн ₽", float64(amount)/1_000_000)
	case amount >= 1000:
		return fmt.Sprintf("%d тыс ₽", amount/1000)
	default:
		return fmt.Sprintf("%d ₽", amount)
	}
}
