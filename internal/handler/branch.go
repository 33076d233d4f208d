package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/studyhall/internal/filter"
	"github.com/mmeshcher/studyhall/internal/middleware"
	"github.com/mmeshcher/studyhall/internal/model"
	"github.com/mmeshcher/studyhall/internal/report"
	"github.com/mmeshcher/studyhall/internal/validation"
)

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

type snackResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Price        float64   `json:"price"`
	PriceDisplay string    `json:"price_display"`
	BranchID     uuid.UUID `json:"branch_id"`
	Active       bool      `json:"active"`
}

func newSnackResponse(s model.Snack) snackResponse {
	return snackResponse{
		ID:           s.ID,
		Name:         s.Name,
		Price:        report.Rupees(s.PricePaise),
		PriceDisplay: report.FormatINR(s.PricePaise),
		BranchID:     s.BranchID,
		Active:       s.Active,
	}
}

// GetSnacks возвращает активное меню филиала.
func (h *Handler) GetSnacks(w http.ResponseWriter, r *http.Request) {
	branchID, ok := uuidParam(w, r, "branchID")
	if !ok {
		return
	}

	snacks, err := h.service.ListSnacks(r.Context(), branchID)
	if err != nil {
		h.writeError(w, err, "list snacks error", zap.Stringer("branchID", branchID))
		return
	}

	if len(snacks) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]snackResponse, 0, len(snacks))
	for _, s := range snacks {
		resp = append(resp, newSnackResponse(s))
	}

	writeJSON(w, http.StatusOK, resp)
}

type snackRequest struct {
	Name  string     `json:"name"`
	Price flexString `json:"price"`
}

// AddSnack добавляет позицию меню филиала.
func (h *Handler) AddSnack(w http.ResponseWriter, r *http.Request) {
	branchID, ok := uuidParam(w, r, "branchID")
	if !ok {
		return
	}

	var req snackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	snack, err := h.service.AddSnack(r.Context(), branchID, req.Name, string(req.Price))
	if err != nil {
		h.writeError(w, err, "add snack error", zap.Stringer("branchID", branchID), zap.String("name", req.Name))
		return
	}

	writeJSON(w, http.StatusCreated, newSnackResponse(*snack))
}

// DeleteSnack помечает позицию меню неактивной.
func (h *Handler) DeleteSnack(w http.ResponseWriter, r *http.Request) {
	branchID, ok := uuidParam(w, r, "branchID")
	if !ok {
		return
	}
	snackID, ok := uuidParam(w, r, "snackID")
	if !ok {
		return
	}

	if err := h.service.RemoveSnack(r.Context(), branchID, snackID); err != nil {
		h.writeError(w, err, "delete snack error", zap.Stringer("branchID", branchID), zap.Stringer("snackID", snackID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type saleRequest struct {
	Quantity    int        `json:"quantity"`
	PaymentMode string     `json:"payment_mode"`
	MemberID    *uuid.UUID `json:"member_id,omitempty"`
}

type transactionResponse struct {
	ID            uuid.UUID  `json:"id"`
	MemberID      *uuid.UUID `json:"member_id,omitempty"`
	Type          string     `json:"type"`
	Amount        float64    `json:"amount"`
	AmountDisplay string     `json:"amount_display"`
	PaymentMode   string     `json:"payment_mode"`
	CreatedAt     string     `json:"created_at"`
}

// SellSnack записывает продажу позиции меню.
func (h *Handler) SellSnack(w http.ResponseWriter, r *http.Request) {
	branchID, ok := uuidParam(w, r, "branchID")
	if !ok {
		return
	}
	snackID, ok := uuidParam(w, r, "snackID")
	if !ok {
		return
	}

	var req saleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	t, err := h.service.SellSnack(r.Context(), branchID, model.SnackSale{
		SnackID:  snackID,
		MemberID: req.MemberID,
		Quantity: req.Quantity,
		Mode:     model.PaymentMode(req.PaymentMode),
	})
	if err != nil {
		h.writeError(w, err, "sell snack error", zap.Stringer("branchID", branchID), zap.Stringer("snackID", snackID))
		return
	}

	writeJSON(w, http.StatusCreated, transactionResponse{
		ID:            t.ID,
		MemberID:      t.MemberID,
		Type:          string(t.Type),
		Amount:        report.Rupees(t.AmountPaise),
		AmountDisplay: report.FormatINR(t.AmountPaise),
		PaymentMode:   string(t.Mode),
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
	})
}

// GetLockers возвращает занятость шкафчиков филиала.
func (h *Handler) GetLockers(w http.ResponseWriter, r *http.Request) {
	branchID, ok := uuidParam(w, r, "branchID")
	if !ok {
		return
	}

	usage, err := h.service.Lockers(r.Context(), branchID)
	if err != nil {
		h.writeError(w, err, "get lockers error", zap.Stringer("branchID", branchID))
		return
	}

	writeJSON(w, http.StatusOK, usage)
}

type lockersRequest struct {
	TotalLockers flexString `json:"total_lockers"`
}

// UpdateLockers меняет вместимость шкафчиков филиала.
func (h *Handler) UpdateLockers(w http.ResponseWriter, r *http.Request) {
	branchID, ok := uuidParam(w, r, "branchID")
	if !ok {
		return
	}

	var req lockersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	usage, err := h.service.UpdateLockerCapacity(r.Context(), branchID, string(req.TotalLockers))
	if err != nil {
		h.writeError(w, err, "update lockers error", zap.Stringer("branchID", branchID), zap.String("total", string(req.TotalLockers)))
		return
	}

	writeJSON(w, http.StatusOK, usage)
}

type memberResponse struct {
	ID             uuid.UUID `json:"id"`
	FullName       string    `json:"full_name"`
	Phone          string    `json:"phone"`
	JoinedAt       string    `json:"joined_at"`
	ExpiresAt      string    `json:"expires_at"`
	Plan           string    `json:"plan"`
	DailyHours     int       `json:"daily_hours"`
	StudyPurpose   string    `json:"study_purpose"`
	RegisteredBy   string    `json:"registered_by"`
	LockerAssigned bool      `json:"locker_assigned"`
	Status         string    `json:"status,omitempty"`
}

func newMemberResponse(m model.Member, st model.MemberStatus) memberResponse {
	return memberResponse{
		ID:             m.ID,
		FullName:       m.FullName,
		Phone:          m.Phone,
		JoinedAt:       m.JoinedAt.Format(time.RFC3339),
		ExpiresAt:      m.ExpiresAt.Format(time.RFC3339),
		Plan:           m.Plan,
		DailyHours:     m.DailyHours,
		StudyPurpose:   m.StudyPurpose,
		RegisteredBy:   m.RegisteredBy,
		LockerAssigned: m.LockerAssigned,
		Status:         string(st),
	}
}

// GetMembers возвращает участников филиала с фильтром по статусу и строке поиска.
func (h *Handler) GetMembers(w http.ResponseWriter, r *http.Request) {
	branchID, ok := uuidParam(w, r, "branchID")
	if !ok {
		return
	}

	state := filter.FromQuery(r.URL.Query())

	members, err := h.service.ListMembers(r.Context(), branchID, state.MemberQuery())
	if err != nil {
		h.writeError(w, err, "list members error", zap.Stringer("branchID", branchID))
		return
	}

	if len(members) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]memberResponse, 0, len(members))
	for _, c := range members {
		resp = append(resp, newMemberResponse(c.Member, c.Status))
	}

	writeJSON(w, http.StatusOK, resp)
}

type memberRequest struct {
	FullName       string     `json:"full_name"`
	Phone          string     `json:"phone"`
	Plan           string     `json:"plan"`
	DailyHours     int        `json:"daily_hours"`
	StudyPurpose   string     `json:"study_purpose"`
	RegisteredBy   string     `json:"registered_by"`
	LockerAssigned bool       `json:"locker_assigned"`
	ExpiresAt      time.Time  `json:"expires_at"`
	Amount         flexString `json:"amount"`
	PaymentMode    string     `json:"payment_mode"`
}

// AddMember зачисляет нового участника филиала.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	branchID, ok := uuidParam(w, r, "branchID")
	if !ok {
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	amount, err := validation.ParsePrice(string(req.Amount))
	if err != nil {
		h.writeError(w, err, "add member error")
		return
	}

	registeredBy := req.RegisteredBy
	if registeredBy == "" {
		if staffID, ok := middleware.GetStaffIDFromContext(r.Context()); ok {
			registeredBy = strconv.FormatInt(staffID, 10)
		}
	}

	m, err := h.service.EnrollMember(r.Context(), model.NewMember{
		BranchID:       branchID,
		FullName:       req.FullName,
		Phone:          req.Phone,
		Plan:           req.Plan,
		DailyHours:     req.DailyHours,
		StudyPurpose:   req.StudyPurpose,
		RegisteredBy:   registeredBy,
		LockerAssigned: req.LockerAssigned,
		ExpiresAt:      req.ExpiresAt,
		AmountPaise:    amount,
		Mode:           model.PaymentMode(req.PaymentMode),
	})
	if err != nil {
		h.writeError(w, err, "add member error", zap.Stringer("branchID", branchID))
		return
	}

	writeJSON(w, http.StatusCreated, newMemberResponse(*m, ""))
}

type renewRequest struct {
	ExpiresAt   time.Time  `json:"expires_at"`
	Amount      flexString `json:"amount"`
	PaymentMode string     `json:"payment_mode"`
}

// RenewMember продлевает абонемент участника.
func (h *Handler) RenewMember(w http.ResponseWriter, r *http.Request) {
	branchID, ok := uuidParam(w, r, "branchID")
	if !ok {
		return
	}
	memberID, ok := uuidParam(w, r, "memberID")
	if !ok {
		return
	}

	var req renewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	amount, err := validation.ParsePrice(string(req.Amount))
	if err != nil {
		h.writeError(w, err, "renew member error")
		return
	}

	m, err := h.service.RenewMember(r.Context(), branchID, model.Renewal{
		MemberID:    memberID,
		ExpiresAt:   req.ExpiresAt,
		AmountPaise: amount,
		Mode:        model.PaymentMode(req.PaymentMode),
	})
	if err != nil {
		h.writeError(w, err, "renew member error", zap.Stringer("branchID", branchID), zap.Stringer("memberID", memberID))
		return
	}

	writeJSON(w, http.StatusOK, newMemberResponse(*m, ""))
}
