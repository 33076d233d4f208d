package filter

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/studyhall/internal/model"
)

func TestMatchSearch(t *testing.T) {
	physics := model.Member{FullName: "Anita Rao", StudyPurpose: "Physics Prep", RegisteredBy: "desk1"}
	other := model.Member{FullName: "Ravi Kumar", StudyPurpose: "UPSC", RegisteredBy: "desk2"}

	tests := []struct {
		name   string
		member model.Member
		term   string
		want   bool
	}{
		{name: "purpose case insensitive", member: physics, term: "phys", want: true},
		{name: "upper case term", member: physics, term: "PHYS", want: true},
		{name: "no field matches", member: other, term: "phys", want: false},
		{name: "name", member: other, term: "kumar", want: true},
		{name: "registered by", member: other, term: "desk2", want: true},
		{name: "empty term", member: other, term: "  ", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchSearch(tt.member, tt.term))
		})
	}
}

func TestMembers(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	members := []model.Member{
		{FullName: "Active Physics", StudyPurpose: "Physics", ExpiresAt: now.AddDate(0, 1, 0)},
		{FullName: "Expired Physics", StudyPurpose: "Physics", ExpiresAt: now.AddDate(0, 0, -1)},
		{FullName: "Active Law", StudyPurpose: "Law", ExpiresAt: now.AddDate(0, 1, 0)},
	}

	all := Members(members, MemberQuery{}, now)
	assert.Len(t, all, 3)

	got := Members(members, MemberQuery{Status: model.MemberStatusActive, Search: "phys"}, now)
	require.Len(t, got, 1)
	assert.Equal(t, "Active Physics", got[0].Member.FullName)
	assert.Equal(t, model.MemberStatusActive, got[0].Status)

	got = Members(members, MemberQuery{Status: model.MemberStatusExpired}, now)
	require.Len(t, got, 1)
	assert.Equal(t, "Expired Physics", got[0].Member.FullName)
}

func TestReduce(t *testing.T) {
	s := DefaultState()

	s = Reduce(s, SelectTab(TabMembers))
	assert.Equal(t, TabMembers, s.Tab)

	s = Reduce(s, SelectTab("settings"))
	assert.Equal(t, TabMembers, s.Tab)

	s = Reduce(s, SetMode("upi"))
	assert.Equal(t, model.PaymentFilter(model.PaymentUPI), s.Mode)

	s = Reduce(s, SetMode("CARD"))
	assert.Equal(t, model.PaymentFilter(model.PaymentUPI), s.Mode)

	s = Reduce(s, SetDays(0))
	assert.Equal(t, 1, s.Days)

	s = Reduce(s, SetDays(10000))
	assert.Equal(t, MaxDays, s.Days)

	s = Reduce(s, SetStatus("expiring"))
	assert.Equal(t, model.MemberStatusExpiring, s.Status)

	s = Reduce(s, SetStatus("ALL"))
	assert.Empty(t, s.Status)

	s = Reduce(s, SetSearch("  phys "))
	assert.Equal(t, "phys", s.Search)

	assert.Equal(t, s, Reduce(s, nil))
}

func TestFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("tab", "members")
	q.Set("mode", "CASH")
	q.Set("days", "30")
	q.Set("status", "ACTIVE")
	q.Set("q", "law")

	s := FromQuery(q)
	assert.Equal(t, State{
		Tab:    TabMembers,
		Mode:   model.PaymentFilter(model.PaymentCash),
		Days:   30,
		Status: model.MemberStatusActive,
		Search: "law",
	}, s)

	assert.Equal(t, DefaultState(), FromQuery(url.Values{"days": {"abc"}}))
}
