package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/studyhall/internal/filter"
	"github.com/mmeshcher/studyhall/internal/locker"
	"github.com/mmeshcher/studyhall/internal/model"
	"github.com/mmeshcher/studyhall/internal/report"
	"github.com/mmeshcher/studyhall/internal/repository"
	"github.com/mmeshcher/studyhall/internal/validation"
)

var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func TestHashPasswordDeterministic(t *testing.T) {
	a := hashPassword("user", "pass")
	b := hashPassword("user", "pass")
	c := hashPassword("user", "other")

	if string(a) != string(b) {
		t.Fatalf("hashPassword must be deterministic, got %x and %x", a, b)
	}
	if string(a) == string(c) {
		t.Fatalf("different passwords must produce different hashes")
	}
}

type stubRepo struct {
	createStaffID  int64
	createStaffErr error

	getStaff    *model.Staff
	getStaffErr error

	branch    *model.Branch
	branchErr error

	updatedTotal *int
	updateErr    error

	snacks         []model.Snack
	createdSnack   *model.Snack
	createSnackErr error
	createSnackArg struct {
		name  string
		paise int64
	}
	deactivateErr error

	members    []model.Member
	membersErr error

	txns        []model.Transaction
	history     []model.Transaction
	txnsErr     error
	txnsSinceAt []time.Time

	createdMember *model.Member
	enrolledArg   model.NewMember
	renewed       *model.Member
	renewErr      error

	sale    *model.Transaction
	saleArg model.SnackSale
	saleErr error
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateStaff(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	return s.createStaffID, s.createStaffErr
}

func (s *stubRepo) GetStaffByLogin(ctx context.Context, login string) (*model.Staff, error) {
	return s.getStaff, s.getStaffErr
}

func (s *stubRepo) GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	return s.branch, s.branchErr
}

func (s *stubRepo) UpdateBranchLockers(ctx context.Context, id uuid.UUID, total int) (*model.Branch, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updatedTotal = &total
	return &model.Branch{ID: id, TotalLockers: total}, nil
}

func (s *stubRepo) ListActiveSnacks(ctx context.Context, branchID uuid.UUID) ([]model.Snack, error) {
	return s.snacks, nil
}

func (s *stubRepo) CreateSnack(ctx context.Context, branchID uuid.UUID, name string, pricePaise int64) (*model.Snack, error) {
	s.createSnackArg.name = name
	s.createSnackArg.paise = pricePaise
	return s.createdSnack, s.createSnackErr
}

func (s *stubRepo) DeactivateSnack(ctx context.Context, branchID, id uuid.UUID) error {
	return s.deactivateErr
}

func (s *stubRepo) ListMembers(ctx context.Context, branchID uuid.UUID) ([]model.Member, error) {
	return s.members, s.membersErr
}

func (s *stubRepo) ListTransactions(ctx context.Context, branchID uuid.UUID, since time.Time) ([]model.Transaction, error) {
	s.txnsSinceAt = append(s.txnsSinceAt, since)
	if since.IsZero() && s.history != nil {
		return s.history, s.txnsErr
	}
	return s.txns, s.txnsErr
}

func (s *stubRepo) CreateMember(ctx context.Context, nm model.NewMember) (*model.Member, error) {
	s.enrolledArg = nm
	s.createdMember = &model.Member{ID: uuid.New(), FullName: nm.FullName, Plan: nm.Plan}
	return s.createdMember, nil
}

func (s *stubRepo) RenewMember(ctx context.Context, branchID uuid.UUID, rn model.Renewal) (*model.Member, error) {
	return s.renewed, s.renewErr
}

func (s *stubRepo) RecordSnackSale(ctx context.Context, branchID uuid.UUID, sale model.SnackSale) (*model.Transaction, error) {
	s.saleArg = sale
	return s.sale, s.saleErr
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo, time.UTC)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestRegisterStaff_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{
		createStaffErr: repository.ErrStaffExists,
	}
	svc := newTestService(repo)

	_, err := svc.RegisterStaff(context.Background(), "login", "pass")
	if !errors.Is(err, repository.ErrStaffExists) {
		t.Fatalf("expected ErrStaffExists, got %v", err)
	}
}

func TestAuthenticateStaff_InvalidCredentials(t *testing.T) {
	hashed := hashPassword("user", "correct")
	repo := &stubRepo{
		getStaff: &model.Staff{
			ID:           1,
			Login:        "user",
			PasswordHash: hashed,
		},
	}

	svc := newTestService(repo)

	_, err := svc.AuthenticateStaff(context.Background(), "user", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	id, err := svc.AuthenticateStaff(context.Background(), "user", "correct")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestAuthenticateStaff_UnknownLogin(t *testing.T) {
	svc := newTestService(&stubRepo{getStaffErr: repository.ErrStaffNotFound})

	_, err := svc.AuthenticateStaff(context.Background(), "ghost", "pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAddSnack_Validation(t *testing.T) {
	repo := &stubRepo{createdSnack: &model.Snack{Name: "Chai"}}
	svc := newTestService(repo)

	_, err := svc.AddSnack(context.Background(), uuid.New(), "", "10")
	require.ErrorIs(t, err, validation.ErrEmptyName)

	_, err = svc.AddSnack(context.Background(), uuid.New(), "Chai", "ten")
	require.ErrorIs(t, err, validation.ErrInvalidPrice)
	assert.Empty(t, repo.createSnackArg.name, "store must not be called for invalid input")

	_, err = svc.AddSnack(context.Background(), uuid.New(), " Chai ", "12.50")
	require.NoError(t, err)
	assert.Equal(t, "Chai", repo.createSnackArg.name)
	assert.Equal(t, int64(1250), repo.createSnackArg.paise)
}

func TestRemoveSnack_NoRowsAffected(t *testing.T) {
	svc := newTestService(&stubRepo{deactivateErr: repository.ErrNoRowsAffected})

	err := svc.RemoveSnack(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, repository.ErrNoRowsAffected)
}

func TestSellSnack(t *testing.T) {
	repo := &stubRepo{sale: &model.Transaction{AmountPaise: 1500}}
	svc := newTestService(repo)

	_, err := svc.SellSnack(context.Background(), uuid.New(), model.SnackSale{SnackID: uuid.New(), Mode: "upi"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.saleArg.Quantity)
	assert.Equal(t, model.PaymentUPI, repo.saleArg.Mode)

	_, err = svc.SellSnack(context.Background(), uuid.New(), model.SnackSale{Quantity: -1, Mode: model.PaymentCash})
	require.ErrorIs(t, err, validation.ErrInvalidQuantity)

	_, err = svc.SellSnack(context.Background(), uuid.New(), model.SnackSale{Mode: "CARD"})
	require.ErrorIs(t, err, validation.ErrInvalidPaymentMode)
}

func TestSellSnack_RejectsOversizedQuantity(t *testing.T) {
	for _, q := range []int{validation.MaxQuantity + 1, 9223372036854776} {
		repo := &stubRepo{sale: &model.Transaction{}}
		svc := newTestService(repo)

		_, err := svc.SellSnack(context.Background(), uuid.New(), model.SnackSale{SnackID: uuid.New(), Quantity: q, Mode: model.PaymentCash})
		require.ErrorIs(t, err, validation.ErrInvalidQuantity)
		assert.Equal(t, model.SnackSale{}, repo.saleArg, "sale must not reach the store")
	}
}

func lockerMembers() []model.Member {
	return []model.Member{
		{LockerAssigned: true, ExpiresAt: fixedNow.AddDate(0, 1, 0)},
		{LockerAssigned: true, ExpiresAt: fixedNow.AddDate(0, 0, 5)},
		{LockerAssigned: true, ExpiresAt: fixedNow.AddDate(0, 0, 1)},
		{LockerAssigned: true, ExpiresAt: fixedNow.AddDate(0, 0, -1)},
	}
}

func TestLockers(t *testing.T) {
	svc := newTestService(&stubRepo{
		branch:  &model.Branch{TotalLockers: 10},
		members: lockerMembers(),
	})

	usage, err := svc.Lockers(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, locker.Usage{Total: 10, InUse: 3, Available: 7}, usage)
}

func TestUpdateLockerCapacity(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
		want    locker.Usage
	}{
		{name: "valid", raw: "12", want: locker.Usage{Total: 12, InUse: 3, Available: 9}},
		{name: "equal to in use", raw: "3", want: locker.Usage{Total: 3, InUse: 3, Available: 0}},
		{name: "below in use", raw: "2", wantErr: locker.ErrBelowInUse},
		{name: "negative", raw: "-4", wantErr: locker.ErrInvalidCapacity},
		{name: "not a number", raw: "many", wantErr: locker.ErrInvalidCapacity},
		{name: "beyond column range", raw: "3000000000", wantErr: locker.ErrInvalidCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{members: lockerMembers()}
			svc := newTestService(repo)

			usage, err := svc.UpdateLockerCapacity(context.Background(), uuid.New(), tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, repo.updatedTotal, "capacity must not be written")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, usage)
		})
	}
}

func TestUpdateLockerCapacity_NoRowsAffected(t *testing.T) {
	svc := newTestService(&stubRepo{updateErr: repository.ErrNoRowsAffected})

	_, err := svc.UpdateLockerCapacity(context.Background(), uuid.New(), "5")
	require.ErrorIs(t, err, repository.ErrNoRowsAffected)
}

func TestListMembers_Filters(t *testing.T) {
	svc := newTestService(&stubRepo{members: []model.Member{
		{FullName: "A", StudyPurpose: "Physics Prep", ExpiresAt: fixedNow.AddDate(0, 0, 10)},
		{FullName: "B", StudyPurpose: "Chemistry", ExpiresAt: fixedNow.AddDate(0, 0, 10)},
	}})

	res, err := svc.ListMembers(context.Background(), uuid.New(), filter.MemberQuery{Search: "phys"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "A", res[0].Member.FullName)
	assert.Equal(t, model.MemberStatusActive, res[0].Status)
}

func TestEnrollMember_Validation(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)

	_, err := svc.EnrollMember(context.Background(), model.NewMember{FullName: "  ", Plan: "Monthly", Mode: model.PaymentCash})
	require.ErrorIs(t, err, validation.ErrEmptyName)
	assert.Nil(t, repo.createdMember)

	m, err := svc.EnrollMember(context.Background(), model.NewMember{
		FullName:  " Anita ",
		Plan:      "Monthly",
		Mode:      "cash",
		ExpiresAt: fixedNow.AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, "Anita", m.FullName)
	assert.Equal(t, model.PaymentCash, repo.enrolledArg.Mode)
}

func TestRenewMember_NotFound(t *testing.T) {
	svc := newTestService(&stubRepo{renewErr: repository.ErrNotFound})

	_, err := svc.RenewMember(context.Background(), uuid.New(), model.Renewal{
		MemberID:  uuid.New(),
		ExpiresAt: fixedNow.AddDate(0, 1, 0),
		Mode:      model.PaymentUPI,
	})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRenewMember_AmountAboveCap(t *testing.T) {
	repo := &stubRepo{renewed: &model.Member{}}
	svc := newTestService(repo)

	_, err := svc.RenewMember(context.Background(), uuid.New(), model.Renewal{
		MemberID:    uuid.New(),
		ExpiresAt:   fixedNow.AddDate(0, 1, 0),
		AmountPaise: validation.MaxAmountPaise + 1,
		Mode:        model.PaymentUPI,
	})
	require.ErrorIs(t, err, validation.ErrInvalidPrice)
}

func TestDashboard(t *testing.T) {
	cashMember := model.Member{ID: uuid.New(), Plan: "Monthly", JoinedAt: fixedNow.AddDate(0, 0, -2), ExpiresAt: fixedNow.AddDate(0, 1, 0), LockerAssigned: true}
	upiMember := model.Member{ID: uuid.New(), Plan: "Weekly", JoinedAt: fixedNow.AddDate(0, -1, 0), ExpiresAt: fixedNow.AddDate(0, 0, 2)}

	recent := []model.Transaction{
		{MemberID: &cashMember.ID, Type: model.TransactionMembership, AmountPaise: 100000, Mode: model.PaymentCash, CreatedAt: fixedNow.AddDate(0, 0, -2)},
		{Type: model.TransactionSnack, AmountPaise: 2000, Mode: model.PaymentUPI, CreatedAt: fixedNow},
	}
	history := append([]model.Transaction{
		{MemberID: &upiMember.ID, Type: model.TransactionMembership, AmountPaise: 30000, Mode: model.PaymentUPI, CreatedAt: fixedNow.AddDate(0, -1, 0)},
	}, recent...)

	repo := &stubRepo{
		branch:  &model.Branch{TotalLockers: 4},
		members: []model.Member{cashMember, upiMember},
		txns:    recent,
		history: history,
	}
	svc := newTestService(repo)

	d, err := svc.Dashboard(context.Background(), uuid.New(), report.Window{Days: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(102000), d.Revenue.TotalPaise)
	assert.Equal(t, 1, d.Joinings)
	assert.Len(t, d.Series, 7)
	assert.Equal(t, locker.Usage{Total: 4, InUse: 1, Available: 3}, d.Lockers)
	require.Len(t, repo.txnsSinceAt, 1)
	assert.Equal(t, time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC), repo.txnsSinceAt[0])

	repo.txnsSinceAt = nil
	d, err = svc.Dashboard(context.Background(), uuid.New(), report.Window{Days: 7, Mode: model.PaymentFilter(model.PaymentUPI)})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), d.Revenue.TotalPaise)
	assert.Equal(t, map[string]int{"Weekly": 1}, d.Plans)
	assert.Equal(t, 1, d.Statuses[model.MemberStatusExpiring])
	assert.Zero(t, d.Joinings)
	require.Len(t, repo.txnsSinceAt, 2)
	assert.True(t, repo.txnsSinceAt[1].IsZero())
}

func TestDashboard_BranchError(t *testing.T) {
	svc := newTestService(&stubRepo{branchErr: repository.ErrNotFound})

	_, err := svc.Dashboard(context.Background(), uuid.New(), report.Window{Days: 1})
	require.ErrorIs(t, err, repository.ErrNotFound)
}
