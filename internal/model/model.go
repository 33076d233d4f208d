// Package model содержит доменные сущности сервиса учебного зала.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Staff представляет сотрудника, работающего с панелью управления.
type Staff struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// MemberStatus описывает производный статус абонемента.
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "ACTIVE"
	MemberStatusExpiring MemberStatus = "EXPIRING"
	MemberStatusExpired  MemberStatus = "EXPIRED"
)

// TransactionType описывает вид платежа.
type TransactionType string

const (
	TransactionMembership TransactionType = "MEMBERSHIP"
	TransactionSnack      TransactionType = "SNACK"
)

// PaymentMode описывает способ оплаты.
type PaymentMode string

const (
	PaymentCash PaymentMode = "CASH"
	PaymentUPI  PaymentMode = "UPI"
)

// PaymentFilter ограничивает отчёты способом оплаты. Пустое значение и PaymentAll пропускают всё.
type PaymentFilter string

// PaymentAll отключает фильтрацию по способу оплаты.
const PaymentAll PaymentFilter = "ALL"

// Allows сообщает, проходит ли способ оплаты через фильтр.
func (f PaymentFilter) Allows(mode PaymentMode) bool {
	if f == "" || f == PaymentAll {
		return true
	}
	return PaymentMode(f) == mode
}

// Valid сообщает, является ли значение фильтра допустимым.
func (f PaymentFilter) Valid() bool {
	switch f {
	case "", PaymentAll, PaymentFilter(PaymentCash), PaymentFilter(PaymentUPI):
		return true
	}
	return false
}

// Member описывает участника учебного зала.
type Member struct {
	ID             uuid.UUID
	BranchID       uuid.UUID
	FullName       string
	Phone          string
	JoinedAt       time.Time
	ExpiresAt      time.Time
	Plan           string
	DailyHours     int
	StudyPurpose   string
	RegisteredBy   string
	LockerAssigned bool
}

// Transaction описывает запись в журнале платежей. Записи не изменяются после создания.
type Transaction struct {
	ID          uuid.UUID
	MemberID    *uuid.UUID
	BranchID    uuid.UUID
	Type        TransactionType
	AmountPaise int64
	Mode        PaymentMode
	CreatedAt   time.Time
}

// Branch описывает филиал с собственным количеством шкафчиков.
type Branch struct {
	ID           uuid.UUID
	Name         string
	TotalLockers int
}

// Snack описывает позицию меню филиала. Неактивные позиции считаются удалёнными.
type Snack struct {
	ID         uuid.UUID
	Name       string
	PricePaise int64
	BranchID   uuid.UUID
	Active     bool
}

// NewMember содержит данные для зачисления нового участника.
type NewMember struct {
	BranchID       uuid.UUID
	FullName       string
	Phone          string
	Plan           string
	DailyHours     int
	StudyPurpose   string
	RegisteredBy   string
	LockerAssigned bool
	ExpiresAt      time.Time
	AmountPaise    int64
	Mode           PaymentMode
}

// Renewal содержит данные для продления абонемента.
type Renewal struct {
	MemberID    uuid.UUID
	ExpiresAt   time.Time
	AmountPaise int64
	Mode        PaymentMode
}

// SnackSale содержит данные о продаже позиции меню.
type SnackSale struct {
	SnackID  uuid.UUID
	MemberID *uuid.UUID
	Quantity int
	Mode     PaymentMode
}
