// Package report рассчитывает показатели панели: выручку, зачисления, распределения и ряды по дням.
//
// Показатели не кэшируются и пересчитываются на каждый запрос из уже загруженных коллекций.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/studyhall/internal/locker"
	"github.com/mmeshcher/studyhall/internal/model"
	"github.com/mmeshcher/studyhall/internal/status"
)

const (
	dayKeyLayout   = "2006-01-02"
	dayLabelLayout = "Jan 2"
)

// Window задаёт окно отчёта в днях и фильтр по способу оплаты.
type Window struct {
	Days int
	Mode model.PaymentFilter
}

// Normalize возвращает окно как минимум в один день с фильтром ALL по умолчанию.
func (w Window) Normalize() Window {
	if w.Days < 1 {
		w.Days = 1
	}
	if w.Mode == "" {
		w.Mode = model.PaymentAll
	}
	return w
}

// Revenue содержит суммы выручки в пайсах.
type Revenue struct {
	TotalPaise      int64
	MembershipPaise int64
	SnackPaise      int64
}

// DayBucket содержит выручку за один календарный день.
type DayBucket struct {
	Date            string
	Label           string
	SnackPaise      int64
	MembershipPaise int64
}

// Dashboard содержит все производные показатели для одного окна.
type Dashboard struct {
	Window   Window
	Since    time.Time
	Revenue  Revenue
	Joinings int
	Series   []DayBucket
	Plans    map[string]int
	Statuses map[model.MemberStatus]int
	Lockers  locker.Usage
}

// Since возвращает нижнюю границу окна длиной days дней, отсчитанную от now.
func Since(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

// SumRevenue суммирует платежи не раньше since, прошедшие фильтр оплаты. Пустой kind учитывает все виды.
func SumRevenue(txns []model.Transaction, since time.Time, mode model.PaymentFilter, kind model.TransactionType) int64 {
	var sum int64
	for _, t := range txns {
		if t.CreatedAt.Before(since) || !mode.Allows(t.Mode) {
			continue
		}
		if kind != "" && t.Type != kind {
			continue
		}
		sum += t.AmountPaise
	}
	return sum
}

// FilterMembersByMode оставляет участников, оплативших абонемент указанным способом.
// Для фильтра ALL возвращаются все участники.
func FilterMembersByMode(members []model.Member, txns []model.Transaction, mode model.PaymentFilter) []model.Member {
	if mode == "" || mode == model.PaymentAll {
		return members
	}

	paid := make(map[uuid.UUID]struct{})
	for _, t := range txns {
		if t.Type != model.TransactionMembership || t.MemberID == nil || !mode.Allows(t.Mode) {
			continue
		}
		paid[*t.MemberID] = struct{}{}
	}

	res := make([]model.Member, 0, len(paid))
	for _, m := range members {
		if _, ok := paid[m.ID]; ok {
			res = append(res, m)
		}
	}
	return res
}

// Joinings возвращает число участников, зачисленных не раньше since.
func Joinings(members []model.Member, since time.Time) int {
	n := 0
	for _, m := range members {
		if !m.JoinedAt.Before(since) {
			n++
		}
	}
	return n
}

// DailySeries строит ряд выручки по календарным дням за последние days дней, от старого к новому.
// Все дни окна присутствуют в ряду, даже если платежей не было.
func DailySeries(txns []model.Transaction, days int, mode model.PaymentFilter, now time.Time, loc *time.Location) []DayBucket {
	if loc == nil {
		loc = time.UTC
	}
	if days < 1 {
		days = 1
	}

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	series := make([]DayBucket, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, i-days+1)
		key := day.Format(dayKeyLayout)
		series[i] = DayBucket{Date: key, Label: day.Format(dayLabelLayout)}
		index[key] = i
	}

	for _, t := range txns {
		if !mode.Allows(t.Mode) {
			continue
		}
		i, ok := index[t.CreatedAt.In(loc).Format(dayKeyLayout)]
		if !ok {
			continue
		}
		switch t.Type {
		case model.TransactionSnack:
			series[i].SnackPaise += t.AmountPaise
		case model.TransactionMembership:
			series[i].MembershipPaise += t.AmountPaise
		}
	}

	return series
}

// PlanDistribution считает участников по тарифам.
func PlanDistribution(members []model.Member) map[string]int {
	res := make(map[string]int)
	for _, m := range members {
		res[m.Plan]++
	}
	return res
}

// StatusDistribution считает участников по статусам. Все статусы присутствуют в результате.
func StatusDistribution(members []model.Member, now time.Time) map[model.MemberStatus]int {
	res := map[model.MemberStatus]int{
		model.MemberStatusActive:   0,
		model.MemberStatusExpiring: 0,
		model.MemberStatusExpired:  0,
	}
	for _, m := range members {
		res[status.Classify(m.ExpiresAt, now)]++
	}
	return res
}

// Input содержит исходные коллекции для расчёта панели.
type Input struct {
	Members      []model.Member
	Transactions []model.Transaction
	// History используется для отбора участников по способу оплаты абонемента.
	// Если не задана, используется Transactions.
	History      []model.Transaction
	TotalLockers int
}

// Build собирает все показатели панели для окна w.
func Build(in Input, w Window, now time.Time, loc *time.Location) Dashboard {
	w = w.Normalize()
	since := Since(now, w.Days)

	history := in.History
	if history == nil {
		history = in.Transactions
	}
	filtered := FilterMembersByMode(in.Members, history, w.Mode)

	return Dashboard{
		Window: w,
		Since:  since,
		Revenue: Revenue{
			TotalPaise:      SumRevenue(in.Transactions, since, w.Mode, ""),
			MembershipPaise: SumRevenue(in.Transactions, since, w.Mode, model.TransactionMembership),
			SnackPaise:      SumRevenue(in.Transactions, since, w.Mode, model.TransactionSnack),
		},
		Joinings: Joinings(filtered, since),
		Series:   DailySeries(in.Transactions, w.Days, w.Mode, now, loc),
		Plans:    PlanDistribution(filtered),
		Statuses: StatusDistribution(filtered, now),
		Lockers:  locker.Compute(in.TotalLockers, in.Members, now),
	}
}
