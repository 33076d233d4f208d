// Package locker считает занятость шкафчиков филиала.
package locker

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/studyhall/internal/model"
	"github.com/mmeshcher/studyhall/internal/status"
)

var (
	// ErrInvalidCapacity возвращается, если вместимость не является неотрицательным целым числом.
	ErrInvalidCapacity = errors.New("locker capacity must be a non-negative integer")
	// ErrBelowInUse возвращается при попытке уменьшить вместимость ниже числа занятых шкафчиков.
	ErrBelowInUse = errors.New("locker capacity is below lockers in use")
)

// MaxCapacity совпадает с диапазоном столбца branches.total_lockers (INTEGER).
const MaxCapacity = math.MaxInt32

// Usage содержит сведения о занятости шкафчиков.
type Usage struct {
	Total     int `json:"total"`
	InUse     int `json:"in_use"`
	Available int `json:"available"`
}

// Coerce приводит сырое значение вместимости к неотрицательному целому. Некорректные значения дают 0.
func Coerce(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 || n > MaxCapacity {
		return 0
	}
	return n
}

// InUse возвращает число шкафчиков, закреплённых за участниками с неистёкшим абонементом.
func InUse(members []model.Member, now time.Time) int {
	n := 0
	for _, m := range members {
		if m.LockerAssigned && status.Holds(status.Classify(m.ExpiresAt, now)) {
			n++
		}
	}
	return n
}

// Compute рассчитывает занятость шкафчиков для филиала с вместимостью total.
func Compute(total int, members []model.Member, now time.Time) Usage {
	if total < 0 {
		total = 0
	}
	inUse := InUse(members, now)
	return Usage{
		Total:     total,
		InUse:     inUse,
		Available: Available(total, inUse),
	}
}

// Available возвращает max(0, total-inUse).
func Available(total, inUse int) int {
	if total-inUse < 0 {
		return 0
	}
	return total - inUse
}

// ValidateCapacity разбирает новую вместимость и проверяет, что она не меньше числа занятых шкафчиков.
func ValidateCapacity(raw string, inUse int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 || n > MaxCapacity {
		return 0, ErrInvalidCapacity
	}
	if n < inUse {
		return 0, ErrBelowInUse
	}
	return n, nil
}
