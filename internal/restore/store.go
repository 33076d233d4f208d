package restore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/studyhall/internal/model"
	"github.com/mmeshcher/studyhall/internal/repository"
	"github.com/mmeshcher/studyhall/internal/validation"
)

const (
	tableStaff        = "staff"
	tableBranches     = "branches"
	tableMembers      = "members"
	tableSnacks       = "snacks"
	tableTransactions = "transactions"

	memberSelect      = "id,branch_id,full_name,phone,joined_at,expires_at,plan,daily_hours,study_purpose,registered_by,locker_assigned"
	snackSelect       = "id,name,price,branch_id,is_active"
	branchSelect      = "id,name,total_lockers"
	transactionSelect = "id,member_id,branch_id,type,amount,payment_mode,created_at"
)

type staffRow struct {
	ID           int64     `json:"id,omitempty"`
	Login        string    `json:"login"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
}

type branchRow struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	TotalLockers int       `json:"total_lockers"`
}

type snackRow struct {
	ID       uuid.UUID `json:"id,omitzero"`
	Name     string    `json:"name"`
	Price    int64     `json:"price"`
	BranchID uuid.UUID `json:"branch_id"`
	IsActive bool      `json:"is_active"`
}

type memberRow struct {
	ID             uuid.UUID `json:"id,omitzero"`
	BranchID       uuid.UUID `json:"branch_id"`
	FullName       string    `json:"full_name"`
	Phone          string    `json:"phone"`
	JoinedAt       time.Time `json:"joined_at,omitzero"`
	ExpiresAt      time.Time `json:"expires_at"`
	Plan           string    `json:"plan"`
	DailyHours     int       `json:"daily_hours"`
	StudyPurpose   string    `json:"study_purpose"`
	RegisteredBy   string    `json:"registered_by"`
	LockerAssigned bool      `json:"locker_assigned"`
}

type transactionRow struct {
	ID          uuid.UUID  `json:"id,omitzero"`
	MemberID    *uuid.UUID `json:"member_id"`
	BranchID    uuid.UUID  `json:"branch_id"`
	Type        string     `json:"type"`
	Amount      int64      `json:"amount"`
	PaymentMode string     `json:"payment_mode"`
	CreatedAt   time.Time  `json:"created_at,omitzero"`
}

func (r memberRow) toModel() model.Member {
	return model.Member{
		ID:             r.ID,
		BranchID:       r.BranchID,
		FullName:       r.FullName,
		Phone:          r.Phone,
		JoinedAt:       r.JoinedAt,
		ExpiresAt:      r.ExpiresAt,
		Plan:           r.Plan,
		DailyHours:     r.DailyHours,
		StudyPurpose:   r.StudyPurpose,
		RegisteredBy:   r.RegisteredBy,
		LockerAssigned: r.LockerAssigned,
	}
}

func (r snackRow) toModel() model.Snack {
	return model.Snack{
		ID:         r.ID,
		Name:       r.Name,
		PricePaise: r.Price,
		BranchID:   r.BranchID,
		Active:     r.IsActive,
	}
}

func (r transactionRow) toModel() model.Transaction {
	return model.Transaction{
		ID:          r.ID,
		MemberID:    r.MemberID,
		BranchID:    r.BranchID,
		Type:        model.TransactionType(r.Type),
		AmountPaise: r.Amount,
		Mode:        model.PaymentMode(r.PaymentMode),
		CreatedAt:   r.CreatedAt,
	}
}

// CreateStaff создаёт учётную запись сотрудника.
func (c *Client) CreateStaff(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	var rows []staffRow
	err := c.do(ctx, request{
		method:     http.MethodPost,
		table:      tableStaff,
		body:       staffRow{Login: login, PasswordHash: `\x` + hex.EncodeToString(passwordHash)},
		returnRows: true,
	}, &rows)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusConflict {
			return 0, fmt.Errorf("%w: %s", repository.ErrStaffExists, login)
		}
		return 0, fmt.Errorf("create staff: %w", err)
	}
	if len(rows) == 0 {
		return 0, repository.ErrNoRowsAffected
	}
	return rows[0].ID, nil
}

// GetStaffByLogin возвращает сотрудника по логину.
func (c *Client) GetStaffByLogin(ctx context.Context, login string) (*model.Staff, error) {
	var rows []staffRow
	err := c.do(ctx, request{
		method: http.MethodGet,
		table:  tableStaff,
		query: url.Values{
			"select": {"id,login,password_hash,created_at"},
			"login":  {eq(login)},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("get staff: %w", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrStaffNotFound
	}

	hash, err := hex.DecodeString(strings.TrimPrefix(rows[0].PasswordHash, `\x`))
	if err != nil {
		return nil, fmt.Errorf("decode password hash: %w", err)
	}

	return &model.Staff{
		ID:           rows[0].ID,
		Login:        rows[0].Login,
		PasswordHash: hash,
		CreatedAt:    rows[0].CreatedAt,
	}, nil
}

// GetBranch возвращает филиал по идентификатору.
func (c *Client) GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	var rows []branchRow
	err := c.do(ctx, request{
		method: http.MethodGet,
		table:  tableBranches,
		query:  url.Values{"select": {branchSelect}, "id": {eq(id)}},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("get branch: %w", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return &model.Branch{ID: rows[0].ID, Name: rows[0].Name, TotalLockers: rows[0].TotalLockers}, nil
}

// UpdateBranchLockers задаёт вместимость шкафчиков и возвращает обновлённую строку.
// Пустой ответ означает, что политика доступа хранилища не позволила обновление.
func (c *Client) UpdateBranchLockers(ctx context.Context, id uuid.UUID, total int) (*model.Branch, error) {
	var rows []branchRow
	err := c.do(ctx, request{
		method:     http.MethodPatch,
		table:      tableBranches,
		query:      url.Values{"select": {branchSelect}, "id": {eq(id)}},
		body:       map[string]int{"total_lockers": total},
		returnRows: true,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("update branch lockers: %w", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrNoRowsAffected
	}
	return &model.Branch{ID: rows[0].ID, Name: rows[0].Name, TotalLockers: rows[0].TotalLockers}, nil
}

// ListActiveSnacks возвращает активные позиции меню филиала, упорядоченные по названию.
func (c *Client) ListActiveSnacks(ctx context.Context, branchID uuid.UUID) ([]model.Snack, error) {
	var rows []snackRow
	err := c.do(ctx, request{
		method: http.MethodGet,
		table:  tableSnacks,
		query: url.Values{
			"select":    {snackSelect},
			"branch_id": {eq(branchID)},
			"is_active": {eq(true)},
			"order":     {"name.asc"},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("select snacks: %w", err)
	}

	res := make([]model.Snack, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.toModel())
	}
	return res, nil
}

// CreateSnack добавляет позицию меню филиала.
func (c *Client) CreateSnack(ctx context.Context, branchID uuid.UUID, name string, pricePaise int64) (*model.Snack, error) {
	var rows []snackRow
	err := c.do(ctx, request{
		method:     http.MethodPost,
		table:      tableSnacks,
		query:      url.Values{"select": {snackSelect}},
		body:       snackRow{Name: name, Price: pricePaise, BranchID: branchID, IsActive: true},
		returnRows: true,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("insert snack: %w", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrNoRowsAffected
	}
	s := rows[0].toModel()
	return &s, nil
}

// DeactivateSnack помечает позицию меню неактивной.
func (c *Client) DeactivateSnack(ctx context.Context, branchID, id uuid.UUID) error {
	var rows []snackRow
	err := c.do(ctx, request{
		method:     http.MethodPatch,
		table:      tableSnacks,
		query:      url.Values{"select": {"id"}, "id": {eq(id)}, "branch_id": {eq(branchID)}},
		body:       map[string]bool{"is_active": false},
		returnRows: true,
	}, &rows)
	if err != nil {
		return fmt.Errorf("deactivate snack: %w", err)
	}
	if len(rows) == 0 {
		return repository.ErrNoRowsAffected
	}
	return nil
}

// ListMembers возвращает всех участников филиала.
func (c *Client) ListMembers(ctx context.Context, branchID uuid.UUID) ([]model.Member, error) {
	var rows []memberRow
	err := c.do(ctx, request{
		method: http.MethodGet,
		table:  tableMembers,
		query: url.Values{
			"select":    {memberSelect},
			"branch_id": {eq(branchID)},
			"order":     {"joined_at.desc"},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}

	res := make([]model.Member, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.toModel())
	}
	return res, nil
}

// ListTransactions возвращает платежи филиала не старше since.
func (c *Client) ListTransactions(ctx context.Context, branchID uuid.UUID, since time.Time) ([]model.Transaction, error) {
	var rows []transactionRow
	err := c.do(ctx, request{
		method: http.MethodGet,
		table:  tableTransactions,
		query: url.Values{
			"select":     {transactionSelect},
			"branch_id":  {eq(branchID)},
			"created_at": {"gte." + since.UTC().Format(time.RFC3339)},
			"order":      {"created_at.asc"},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}

	res := make([]model.Transaction, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.toModel())
	}
	return res, nil
}

func (c *Client) insertTransaction(ctx context.Context, row transactionRow) (*model.Transaction, error) {
	var rows []transactionRow
	err := c.do(ctx, request{
		method:     http.MethodPost,
		table:      tableTransactions,
		query:      url.Values{"select": {transactionSelect}},
		body:       row,
		returnRows: true,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrNoRowsAffected
	}
	t := rows[0].toModel()
	return &t, nil
}

// CreateMember зачисляет участника и записывает оплату абонемента.
// Хранилище не поддерживает транзакции через REST, поэтому записи создаются последовательно.
func (c *Client) CreateMember(ctx context.Context, nm model.NewMember) (*model.Member, error) {
	var rows []memberRow
	err := c.do(ctx, request{
		method: http.MethodPost,
		table:  tableMembers,
		query:  url.Values{"select": {memberSelect}},
		body: memberRow{
			BranchID:       nm.BranchID,
			FullName:       nm.FullName,
			Phone:          nm.Phone,
			ExpiresAt:      nm.ExpiresAt,
			Plan:           nm.Plan,
			DailyHours:     nm.DailyHours,
			StudyPurpose:   nm.StudyPurpose,
			RegisteredBy:   nm.RegisteredBy,
			LockerAssigned: nm.LockerAssigned,
		},
		returnRows: true,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrNoRowsAffected
	}

	m := rows[0].toModel()
	if _, err := c.insertTransaction(ctx, transactionRow{
		MemberID:    &m.ID,
		BranchID:    nm.BranchID,
		Type:        string(model.TransactionMembership),
		Amount:      nm.AmountPaise,
		PaymentMode: string(nm.Mode),
	}); err != nil {
		return nil, err
	}

	return &m, nil
}

// RenewMember продлевает абонемент участника и записывает оплату.
func (c *Client) RenewMember(ctx context.Context, branchID uuid.UUID, rn model.Renewal) (*model.Member, error) {
	var rows []memberRow
	err := c.do(ctx, request{
		method:     http.MethodPatch,
		table:      tableMembers,
		query:      url.Values{"select": {memberSelect}, "id": {eq(rn.MemberID)}, "branch_id": {eq(branchID)}},
		body:       map[string]time.Time{"expires_at": rn.ExpiresAt},
		returnRows: true,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("renew member: %w", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}

	m := rows[0].toModel()
	if _, err := c.insertTransaction(ctx, transactionRow{
		MemberID:    &m.ID,
		BranchID:    branchID,
		Type:        string(model.TransactionMembership),
		Amount:      rn.AmountPaise,
		PaymentMode: string(rn.Mode),
	}); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordSnackSale записывает продажу активной позиции меню филиала.
func (c *Client) RecordSnackSale(ctx context.Context, branchID uuid.UUID, sale model.SnackSale) (*model.Transaction, error) {
	var rows []snackRow
	err := c.do(ctx, request{
		method: http.MethodGet,
		table:  tableSnacks,
		query: url.Values{
			"select":    {snackSelect},
			"id":        {eq(sale.SnackID)},
			"branch_id": {eq(branchID)},
			"is_active": {eq(true)},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("select snack: %w", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrSnackUnavailable
	}

	amount, err := validation.LineTotal(rows[0].Price, sale.Quantity)
	if err != nil {
		return nil, err
	}

	return c.insertTransaction(ctx, transactionRow{
		MemberID:    sale.MemberID,
		BranchID:    branchID,
		Type:        string(model.TransactionSnack),
		Amount:      amount,
		PaymentMode: string(sale.Mode),
	})
}
