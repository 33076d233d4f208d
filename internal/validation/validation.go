// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/mmeshcher/studyhall/internal/model"
)

var (
	// ErrEmptyName возвращается, если название или имя не заполнено.
	ErrEmptyName = errors.New("name must not be empty")
	// ErrInvalidPrice возвращается, если цена не является неотрицательным числом.
	ErrInvalidPrice = errors.New("price must be a non-negative number")
	// ErrInvalidPhone возвращается для некорректного номера телефона.
	ErrInvalidPhone = errors.New("phone must contain 10 digits")
	// ErrInvalidPaymentMode возвращается для неизвестного способа оплаты.
	ErrInvalidPaymentMode = errors.New("payment mode must be CASH or UPI")
	// ErrInvalidHours возвращается, если число часов в день вне диапазона 0..24.
	ErrInvalidHours = errors.New("daily hours must be between 0 and 24")
	// ErrEmptyPlan возвращается, если тариф не указан.
	ErrEmptyPlan = errors.New("plan must not be empty")
	// ErrInvalidExpiry возвращается, если дата окончания абонемента не указана.
	ErrInvalidExpiry = errors.New("expiry date is required")
	// ErrInvalidQuantity возвращается, если количество не положительно.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 1000")
)

const (
	// MaxAmountPaise ограничивает цену и сумму одного платежа (₹1 crore).
	MaxAmountPaise int64 = 1_000_000_000
	// MaxQuantity ограничивает число позиций в одной продаже.
	MaxQuantity = 1000
)

// ParsePrice разбирает цену в рупиях и возвращает её в пайсах.
func ParsePrice(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidPrice
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, ErrInvalidPrice
	}

	// Сравнение во float64 до приведения к int64, иначе огромные значения переполняются в отрицательные.
	paise := math.Round(v * 100)
	if paise > float64(MaxAmountPaise) {
		return 0, ErrInvalidPrice
	}

	return int64(paise), nil
}

// Quantity проверяет количество позиций в продаже.
func Quantity(q int) error {
	if q < 1 || q > MaxQuantity {
		return ErrInvalidQuantity
	}
	return nil
}

// LineTotal возвращает сумму продажи в пайсах. Цена и количество проверяются заново,
// поэтому результат всегда лежит в [0, MaxAmountPaise*MaxQuantity] без переполнения.
func LineTotal(pricePaise int64, quantity int) (int64, error) {
	if pricePaise < 0 || pricePaise > MaxAmountPaise {
		return 0, ErrInvalidPrice
	}
	if err := Quantity(quantity); err != nil {
		return 0, err
	}
	return pricePaise * int64(quantity), nil
}

// Snack проверяет данные новой позиции меню и возвращает очищенное название и цену в пайсах.
func Snack(name, price string) (string, int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", 0, ErrEmptyName
	}

	paise, err := ParsePrice(price)
	if err != nil {
		return "", 0, err
	}

	return name, paise, nil
}

// PaymentMode разбирает способ оплаты без учёта регистра.
func PaymentMode(raw string) (model.PaymentMode, error) {
	switch m := model.PaymentMode(strings.ToUpper(strings.TrimSpace(raw))); m {
	case model.PaymentCash, model.PaymentUPI:
		return m, nil
	}
	return "", ErrInvalidPaymentMode
}

// IsValidPhone проверяет, что номер состоит из 10 цифр, допуская префикс +91 и пробелы.
func IsValidPhone(phone string) bool {
	phone = strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
	phone = strings.TrimPrefix(phone, "+91")

	if len(phone) != 10 {
		return false
	}
	for _, ch := range phone {
		if !unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}

// Member проверяет данные нового участника.
func Member(m model.NewMember) error {
	if strings.TrimSpace(m.FullName) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(m.Plan) == "" {
		return ErrEmptyPlan
	}
	if m.Phone != "" && !IsValidPhone(m.Phone) {
		return ErrInvalidPhone
	}
	if m.DailyHours < 0 || m.DailyHours > 24 {
		return ErrInvalidHours
	}
	if m.ExpiresAt.IsZero() {
		return ErrInvalidExpiry
	}
	if m.AmountPaise < 0 || m.AmountPaise > MaxAmountPaise {
		return ErrInvalidPrice
	}
	if _, err := PaymentMode(string(m.Mode)); err != nil {
		return err
	}
	return nil
}
