// Package service реализует бизнес-логику сервиса учебного зала.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/studyhall/internal/filter"
	"github.com/mmeshcher/studyhall/internal/locker"
	"github.com/mmeshcher/studyhall/internal/model"
	"github.com/mmeshcher/studyhall/internal/report"
	"github.com/mmeshcher/studyhall/internal/repository"
	"github.com/mmeshcher/studyhall/internal/validation"
)

// ErrInvalidCredentials возвращается при неверном логине или пароле.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateStaff(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetStaffByLogin(ctx context.Context, login string) (*model.Staff, error)
	GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error)
	UpdateBranchLockers(ctx context.Context, id uuid.UUID, total int) (*model.Branch, error)
	ListActiveSnacks(ctx context.Context, branchID uuid.UUID) ([]model.Snack, error)
	CreateSnack(ctx context.Context, branchID uuid.UUID, name string, pricePaise int64) (*model.Snack, error)
	DeactivateSnack(ctx context.Context, branchID, id uuid.UUID) error
	ListMembers(ctx context.Context, branchID uuid.UUID) ([]model.Member, error)
	ListTransactions(ctx context.Context, branchID uuid.UUID, since time.Time) ([]model.Transaction, error)
	CreateMember(ctx context.Context, nm model.NewMember) (*model.Member, error)
	RenewMember(ctx context.Context, branchID uuid.UUID, rn model.Renewal) (*model.Member, error)
	RecordSnackSale(ctx context.Context, branchID uuid.UUID, sale model.SnackSale) (*model.Transaction, error)
}

// Service содержит бизнес-логику сервиса учебного зала.
type Service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewService создаёт новый сервис. Календарные дни отчётов считаются в часовом поясе loc.
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo: repo,
		loc:  loc,
		now:  time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterStaff регистрирует нового сотрудника.
func (s *Service) RegisterStaff(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateStaff(ctx, login, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrStaffExists) {
			return 0, repository.ErrStaffExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateStaff проверяет логин и пароль сотрудника и возвращает его идентификатор.
func (s *Service) AuthenticateStaff(ctx context.Context, login, password string) (int64, error) {
	u, err := s.repo.GetStaffByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrStaffNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return 0, ErrInvalidCredentials
	}

	return u.ID, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// ListSnacks возвращает активное меню филиала.
func (s *Service) ListSnacks(ctx context.Context, branchID uuid.UUID) ([]model.Snack, error) {
	return s.repo.ListActiveSnacks(ctx, branchID)
}

// AddSnack проверяет данные и добавляет позицию меню. Цена передаётся строкой в рупиях.
func (s *Service) AddSnack(ctx context.Context, branchID uuid.UUID, name, price string) (*model.Snack, error) {
	name, paise, err := validation.Snack(name, price)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateSnack(ctx, branchID, name, paise)
}

// RemoveSnack помечает позицию меню неактивной.
func (s *Service) RemoveSnack(ctx context.Context, branchID, snackID uuid.UUID) error {
	return s.repo.DeactivateSnack(ctx, branchID, snackID)
}

// SellSnack записывает продажу позиции меню.
func (s *Service) SellSnack(ctx context.Context, branchID uuid.UUID, sale model.SnackSale) (*model.Transaction, error) {
	if sale.Quantity == 0 {
		sale.Quantity = 1
	}
	if err := validation.Quantity(sale.Quantity); err != nil {
		return nil, err
	}
	mode, err := validation.PaymentMode(string(sale.Mode))
	if err != nil {
		return nil, err
	}
	sale.Mode = mode
	return s.repo.RecordSnackSale(ctx, branchID, sale)
}

// Lockers возвращает текущую занятость шкафчиков филиала.
func (s *Service) Lockers(ctx context.Context, branchID uuid.UUID) (locker.Usage, error) {
	branch, members, err := s.branchWithMembers(ctx, branchID)
	if err != nil {
		return locker.Usage{}, err
	}
	return locker.Compute(branch.TotalLockers, members, s.now()), nil
}

// UpdateLockerCapacity меняет вместимость шкафчиков. Новое значение не может быть меньше числа занятых шкафчиков.
func (s *Service) UpdateLockerCapacity(ctx context.Context, branchID uuid.UUID, raw string) (locker.Usage, error) {
	members, err := s.repo.ListMembers(ctx, branchID)
	if err != nil {
		return locker.Usage{}, err
	}

	now := s.now()
	total, err := locker.ValidateCapacity(raw, locker.InUse(members, now))
	if err != nil {
		return locker.Usage{}, err
	}

	branch, err := s.repo.UpdateBranchLockers(ctx, branchID, total)
	if err != nil {
		return locker.Usage{}, err
	}

	return locker.Compute(branch.TotalLockers, members, now), nil
}

// ListMembers возвращает участников филиала, подходящих под фильтр, вместе с их статусами.
func (s *Service) ListMembers(ctx context.Context, branchID uuid.UUID, q filter.MemberQuery) ([]filter.Classified, error) {
	members, err := s.repo.ListMembers(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return filter.Members(members, q, s.now()), nil
}

// EnrollMember проверяет данные и зачисляет нового участника.
func (s *Service) EnrollMember(ctx context.Context, nm model.NewMember) (*model.Member, error) {
	nm.FullName = strings.TrimSpace(nm.FullName)
	nm.Plan = strings.TrimSpace(nm.Plan)
	if err := validation.Member(nm); err != nil {
		return nil, err
	}
	mode, err := validation.PaymentMode(string(nm.Mode))
	if err != nil {
		return nil, err
	}
	nm.Mode = mode
	return s.repo.CreateMember(ctx, nm)
}

// RenewMember продлевает абонемент участника.
func (s *Service) RenewMember(ctx context.Context, branchID uuid.UUID, rn model.Renewal) (*model.Member, error) {
	mode, err := validation.PaymentMode(string(rn.Mode))
	if err != nil {
		return nil, err
	}
	if rn.ExpiresAt.IsZero() {
		return nil, validation.ErrInvalidExpiry
	}
	if rn.AmountPaise < 0 || rn.AmountPaise > validation.MaxAmountPaise {
		return nil, validation.ErrInvalidPrice
	}
	rn.Mode = mode
	return s.repo.RenewMember(ctx, branchID, rn)
}

// Dashboard рассчитывает показатели панели для окна w.
func (s *Service) Dashboard(ctx context.Context, branchID uuid.UUID, w report.Window) (*report.Dashboard, error) {
	w = w.Normalize()
	now := s.now()

	branch, members, err := s.branchWithMembers(ctx, branchID)
	if err != nil {
		return nil, err
	}

	// Ряд по дням начинается с полуночи самого старого дня, а окно выручки со сдвига now-days.
	local := now.In(s.loc)
	seriesStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, 1-w.Days)
	since := report.Since(now, w.Days)
	if seriesStart.Before(since) {
		since = seriesStart
	}

	txns, err := s.repo.ListTransactions(ctx, branchID, since)
	if err != nil {
		return nil, err
	}

	// Фильтр участников по способу оплаты опирается на всю историю платежей.
	history := txns
	if w.Mode != model.PaymentAll {
		history, err = s.repo.ListTransactions(ctx, branchID, time.Time{})
		if err != nil {
			return nil, err
		}
	}

	d := report.Build(report.Input{
		Members:      members,
		Transactions: txns,
		History:      history,
		TotalLockers: branch.TotalLockers,
	}, w, now, s.loc)

	return &d, nil
}

func (s *Service) branchWithMembers(ctx context.Context, branchID uuid.UUID) (*model.Branch, []model.Member, error) {
	branch, err := s.repo.GetBranch(ctx, branchID)
	if err != nil {
		return nil, nil, err
	}
	members, err := s.repo.ListMembers(ctx, branchID)
	if err != nil {
		return nil, nil, err
	}
	return branch, members, nil
}
