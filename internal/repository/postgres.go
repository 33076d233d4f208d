// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/studyhall/internal/model"
	"github.com/mmeshcher/studyhall/internal/validation"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const memberColumns = `id, branch_id, full_name, phone, joined_at, expires_at, plan, daily_hours, study_purpose, registered_by, locker_assigned`

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateStaff создаёт учётную запись сотрудника.
func (r *PostgresRepository) CreateStaff(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO staff (login, password_hash) VALUES ($1, $2) RETURNING id`,
		login, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrStaffExists, login)
		}
		return 0, fmt.Errorf("create staff: %w", err)
	}
	return id, nil
}

// GetStaffByLogin возвращает сотрудника по логину.
func (r *PostgresRepository) GetStaffByLogin(ctx context.Context, login string) (*model.Staff, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, created_at FROM staff WHERE login = $1`,
		login,
	)

	var s model.Staff
	err := row.Scan(&s.ID, &s.Login, &s.PasswordHash, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("get staff: %w", err)
	}

	return &s, nil
}

// GetBranch возвращает филиал по идентификатору.
func (r *PostgresRepository) GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	var b model.Branch
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, total_lockers FROM branches WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.Name, &b.TotalLockers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return &b, nil
}

// UpdateBranchLockers задаёт вместимость шкафчиков филиала и возвращает обновлённую строку.
func (r *PostgresRepository) UpdateBranchLockers(ctx context.Context, id uuid.UUID, total int) (*model.Branch, error) {
	var b model.Branch
	err := r.pool.QueryRow(ctx,
		`UPDATE branches SET total_lockers = $2 WHERE id = $1 RETURNING id, name, total_lockers`,
		id, total,
	).Scan(&b.ID, &b.Name, &b.TotalLockers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRowsAffected
		}
		return nil, fmt.Errorf("update branch lockers: %w", err)
	}
	return &b, nil
}

// ListActiveSnacks возвращает активные позиции меню филиала, упорядоченные по названию.
func (r *PostgresRepository) ListActiveSnacks(ctx context.Context, branchID uuid.UUID) ([]model.Snack, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, price, branch_id, is_active
		 FROM snacks
		 WHERE branch_id = $1 AND is_active
		 ORDER BY name`,
		branchID,
	)
	if err != nil {
		return nil, fmt.Errorf("select snacks: %w", err)
	}
	defer rows.Close()

	var res []model.Snack
	for rows.Next() {
		var s model.Snack
		if err := rows.Scan(&s.ID, &s.Name, &s.PricePaise, &s.BranchID, &s.Active); err != nil {
			return nil, fmt.Errorf("scan snack: %w", err)
		}
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateSnack добавляет позицию меню филиала.
func (r *PostgresRepository) CreateSnack(ctx context.Context, branchID uuid.UUID, name string, pricePaise int64) (*model.Snack, error) {
	s := model.Snack{Name: name, PricePaise: pricePaise, BranchID: branchID, Active: true}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO snacks (branch_id, name, price) VALUES ($1, $2, $3) RETURNING id`,
		branchID, name, pricePaise,
	).Scan(&s.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, fmt.Errorf("%w: branch %s", ErrNotFound, branchID)
		}
		return nil, fmt.Errorf("insert snack: %w", err)
	}
	return &s, nil
}

// DeactivateSnack помечает позицию меню неактивной. Строка не удаляется, чтобы сохранить историю продаж.
func (r *PostgresRepository) DeactivateSnack(ctx context.Context, branchID, id uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE snacks SET is_active = false WHERE id = $1 AND branch_id = $2`,
		id, branchID,
	)
	if err != nil {
		return fmt.Errorf("deactivate snack: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// ListMembers возвращает всех участников филиала.
func (r *PostgresRepository) ListMembers(ctx context.Context, branchID uuid.UUID) ([]model.Member, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+memberColumns+`
		 FROM members
		 WHERE branch_id = $1
		 ORDER BY joined_at DESC`,
		branchID,
	)
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}
	defer rows.Close()

	var res []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func scanMember(row pgx.Row) (*model.Member, error) {
	var m model.Member
	err := row.Scan(
		&m.ID,
		&m.BranchID,
		&m.FullName,
		&m.Phone,
		&m.JoinedAt,
		&m.ExpiresAt,
		&m.Plan,
		&m.DailyHours,
		&m.StudyPurpose,
		&m.RegisteredBy,
		&m.LockerAssigned,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan member: %w", err)
	}
	return &m, nil
}

// ListTransactions возвращает платежи филиала не старше since.
func (r *PostgresRepository) ListTransactions(ctx context.Context, branchID uuid.UUID, since time.Time) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, member_id, branch_id, type, amount, payment_mode, created_at
		 FROM transactions
		 WHERE branch_id = $1 AND created_at >= $2
		 ORDER BY created_at`,
		branchID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		var (
			t        model.Transaction
			kind     string
			mode     string
			memberID *uuid.UUID
		)
		if err := rows.Scan(&t.ID, &memberID, &t.BranchID, &kind, &t.AmountPaise, &mode, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.MemberID = memberID
		t.Type = model.TransactionType(kind)
		t.Mode = model.PaymentMode(mode)
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateMember зачисляет участника и записывает оплату абонемента в одной транзакции.
func (r *PostgresRepository) CreateMember(ctx context.Context, nm model.NewMember) (*model.Member, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	m, err := scanMember(tx.QueryRow(ctx,
		`INSERT INTO members (branch_id, full_name, phone, expires_at, plan, daily_hours, study_purpose, registered_by, locker_assigned)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+memberColumns,
		nm.BranchID, nm.FullName, nm.Phone, nm.ExpiresAt, nm.Plan, nm.DailyHours, nm.StudyPurpose, nm.RegisteredBy, nm.LockerAssigned,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, fmt.Errorf("%w: branch %s", ErrNotFound, nm.BranchID)
		}
		return nil, fmt.Errorf("insert member: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (branch_id, member_id, type, amount, payment_mode) VALUES ($1, $2, $3, $4, $5)`,
		nm.BranchID, m.ID, string(model.TransactionMembership), nm.AmountPaise, string(nm.Mode),
	)
	if err != nil {
		return nil, fmt.Errorf("insert membership transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return m, nil
}

// RenewMember продлевает абонемент участника филиала и записывает оплату в одной транзакции.
func (r *PostgresRepository) RenewMember(ctx context.Context, branchID uuid.UUID, rn model.Renewal) (*model.Member, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	m, err := scanMember(tx.QueryRow(ctx,
		`UPDATE members SET expires_at = $3
		 WHERE id = $1 AND branch_id = $2
		 RETURNING `+memberColumns,
		rn.MemberID, branchID, rn.ExpiresAt,
	))
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (branch_id, member_id, type, amount, payment_mode) VALUES ($1, $2, $3, $4, $5)`,
		branchID, rn.MemberID, string(model.TransactionMembership), rn.AmountPaise, string(rn.Mode),
	)
	if err != nil {
		return nil, fmt.Errorf("insert membership transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return m, nil
}

// RecordSnackSale записывает продажу активной позиции меню филиала.
func (r *PostgresRepository) RecordSnackSale(ctx context.Context, branchID uuid.UUID, sale model.SnackSale) (*model.Transaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var price int64
	err = tx.QueryRow(ctx,
		`SELECT price FROM snacks WHERE id = $1 AND branch_id = $2 AND is_active FOR SHARE`,
		sale.SnackID, branchID,
	).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnackUnavailable
		}
		return nil, fmt.Errorf("select snack price: %w", err)
	}

	amount, err := validation.LineTotal(price, sale.Quantity)
	if err != nil {
		return nil, err
	}

	t := model.Transaction{
		MemberID:    sale.MemberID,
		BranchID:    branchID,
		Type:        model.TransactionSnack,
		AmountPaise: amount,
		Mode:        sale.Mode,
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO transactions (branch_id, member_id, type, amount, payment_mode)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		branchID, sale.MemberID, string(t.Type), t.AmountPaise, string(t.Mode),
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert snack transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &t, nil
}
