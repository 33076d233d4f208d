// Package filter содержит предикаты поиска участников и состояние представления панели.
package filter

import (
	"strings"
	"time"

	"github.com/mmeshcher/studyhall/internal/model"
	"github.com/mmeshcher/studyhall/internal/status"
)

// MemberQuery описывает фильтр списка участников. Пустой Status пропускает все статусы.
type MemberQuery struct {
	Status model.MemberStatus
	Search string
}

// Match сообщает, подходит ли участник со статусом st под запрос.
func (q MemberQuery) Match(m model.Member, st model.MemberStatus) bool {
	if q.Status != "" && q.Status != st {
		return false
	}
	return MatchSearch(m, q.Search)
}

// MatchSearch ищет term без учёта регистра в имени, цели занятий и имени зарегистрировавшего сотрудника.
func MatchSearch(m model.Member, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, field := range []string{m.FullName, m.StudyPurpose, m.RegisteredBy} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Classified связывает участника с его статусом на момент запроса.
type Classified struct {
	Member model.Member
	Status model.MemberStatus
}

// Members классифицирует участников и возвращает подходящих под запрос в исходном порядке.
func Members(members []model.Member, q MemberQuery, now time.Time) []Classified {
	res := make([]Classified, 0, len(members))
	for _, m := range members {
		st := status.Classify(m.ExpiresAt, now)
		if q.Match(m, st) {
			res = append(res, Classified{Member: m, Status: st})
		}
	}
	return res
}
