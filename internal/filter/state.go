package filter

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/mmeshcher/studyhall/internal/model"
	"github.com/mmeshcher/studyhall/internal/status"
)

// Tab определяет раздел панели.
type Tab string

const (
	TabOverview Tab = "overview"
	TabMembers  Tab = "members"
	TabSnacks   Tab = "snacks"
	TabLockers  Tab = "lockers"
)

// DefaultDays задаёт окно отчёта по умолчанию.
const DefaultDays = 7

// MaxDays ограничивает длину окна отчёта.
const MaxDays = 366

// State хранит выбор пользователя на панели.
type State struct {
	Tab    Tab
	Mode   model.PaymentFilter
	Days   int
	Status model.MemberStatus
	Search string
}

// DefaultState возвращает начальное состояние панели.
func DefaultState() State {
	return State{
		Tab:  TabOverview,
		Mode: model.PaymentAll,
		Days: DefaultDays,
	}
}

// Action описывает изменение состояния панели.
type Action interface {
	apply(State) State
}

// SelectTab переключает раздел. Неизвестные разделы игнорируются.
type SelectTab Tab

func (a SelectTab) apply(s State) State {
	switch Tab(a) {
	case TabOverview, TabMembers, TabSnacks, TabLockers:
		s.Tab = Tab(a)
	}
	return s
}

// SetMode меняет фильтр способа оплаты. Недопустимые значения игнорируются.
type SetMode model.PaymentFilter

func (a SetMode) apply(s State) State {
	m := model.PaymentFilter(strings.ToUpper(string(a)))
	if m == "" {
		m = model.PaymentAll
	}
	if m.Valid() {
		s.Mode = m
	}
	return s
}

// SetDays меняет окно отчёта, ограничивая его диапазоном [1, MaxDays].
type SetDays int

func (a SetDays) apply(s State) State {
	d := int(a)
	if d < 1 {
		d = 1
	}
	if d > MaxDays {
		d = MaxDays
	}
	s.Days = d
	return s
}

// SetStatus меняет фильтр статуса. "ALL" сбрасывает фильтр, недопустимые значения игнорируются.
type SetStatus string

func (a SetStatus) apply(s State) State {
	if st, ok := status.Parse(strings.ToUpper(string(a))); ok {
		s.Status = st
	}
	return s
}

// SetSearch меняет строку поиска.
type SetSearch string

func (a SetSearch) apply(s State) State {
	s.Search = strings.TrimSpace(string(a))
	return s
}

// Reduce применяет действие к состоянию и возвращает новое состояние.
func Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	return a.apply(s)
}

// FromQuery строит состояние из параметров запроса поверх состояния по умолчанию.
func FromQuery(q url.Values) State {
	s := DefaultState()
	if v := q.Get("tab"); v != "" {
		s = Reduce(s, SelectTab(v))
	}
	if v := q.Get("mode"); v != "" {
		s = Reduce(s, SetMode(v))
	}
	if v := q.Get("days"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			s = Reduce(s, SetDays(d))
		}
	}
	if v := q.Get("status"); v != "" {
		s = Reduce(s, SetStatus(v))
	}
	if v := q.Get("q"); v != "" {
		s = Reduce(s, SetSearch(v))
	}
	return s
}

// MemberQuery возвращает фильтр участников для текущего состояния.
func (s State) MemberQuery() MemberQuery {
	return MemberQuery{Status: s.Status, Search: s.Search}
}
