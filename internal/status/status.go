// Package status классифицирует абонементы по дате окончания.
package status

import (
	"time"

	"github.com/mmeshcher/studyhall/internal/model"
)

// ExpiringWindow задаёт, за сколько до окончания абонемент считается истекающим.
const ExpiringWindow = 3 * 24 * time.Hour

// Classify возвращает статус абонемента с датой окончания expiresAt относительно now.
func Classify(expiresAt, now time.Time) model.MemberStatus {
	if expiresAt.Before(now) {
		return model.MemberStatusExpired
	}
	if !expiresAt.After(now.Add(ExpiringWindow)) {
		return model.MemberStatusExpiring
	}
	return model.MemberStatusActive
}

// Holds сообщает, занимает ли участник со статусом s выданные ему ресурсы (шкафчик).
func Holds(s model.MemberStatus) bool {
	return s == model.MemberStatusActive || s == model.MemberStatusExpiring
}

// Parse разбирает строковое представление статуса. "ALL" и пустая строка дают пустой статус.
func Parse(raw string) (model.MemberStatus, bool) {
	switch model.MemberStatus(raw) {
	case model.MemberStatusActive, model.MemberStatusExpiring, model.MemberStatusExpired:
		return model.MemberStatus(raw), true
	case "", "ALL":
		return "", true
	}
	return "", false
}
