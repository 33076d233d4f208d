// Package handler содержит HTTP-обработчики API сервиса учебного зала.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mmeshcher/studyhall/internal/filter"
	"github.com/mmeshcher/studyhall/internal/locker"
	"github.com/mmeshcher/studyhall/internal/middleware"
	"github.com/mmeshcher/studyhall/internal/model"
	"github.com/mmeshcher/studyhall/internal/report"
	"github.com/mmeshcher/studyhall/internal/repository"
	"github.com/mmeshcher/studyhall/internal/service"
	"github.com/mmeshcher/studyhall/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterStaff(ctx context.Context, login, password string) (int64, error)
	AuthenticateStaff(ctx context.Context, login, password string) (int64, error)
	ListSnacks(ctx context.Context, branchID uuid.UUID) ([]model.Snack, error)
	AddSnack(ctx context.Context, branchID uuid.UUID, name, price string) (*model.Snack, error)
	RemoveSnack(ctx context.Context, branchID, snackID uuid.UUID) error
	SellSnack(ctx context.Context, branchID uuid.UUID, sale model.SnackSale) (*model.Transaction, error)
	Lockers(ctx context.Context, branchID uuid.UUID) (locker.Usage, error)
	UpdateLockerCapacity(ctx context.Context, branchID uuid.UUID, raw string) (locker.Usage, error)
	ListMembers(ctx context.Context, branchID uuid.UUID, q filter.MemberQuery) ([]filter.Classified, error)
	EnrollMember(ctx context.Context, nm model.NewMember) (*model.Member, error)
	RenewMember(ctx context.Context, branchID uuid.UUID, rn model.Renewal) (*model.Member, error)
	Dashboard(ctx context.Context, branchID uuid.UUID, w report.Window) (*report.Dashboard, error)
}

// Handler реализует HTTP-обработчики API сервиса учебного зала.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	authLimiter    *rate.Limiter
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		authLimiter:    rate.NewLimiter(rate.Limit(5), 10),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// flexString принимает в JSON как строку, так и число.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит ошибку сервиса в HTTP-ответ. Ошибки хранилища логируются.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	switch {
	case errors.Is(err, validation.ErrEmptyName),
		errors.Is(err, validation.ErrEmptyPlan),
		errors.Is(err, validation.ErrInvalidPrice),
		errors.Is(err, validation.ErrInvalidPhone),
		errors.Is(err, validation.ErrInvalidPaymentMode),
		errors.Is(err, validation.ErrInvalidHours),
		errors.Is(err, validation.ErrInvalidExpiry),
		errors.Is(err, validation.ErrInvalidQuantity),
		errors.Is(err, locker.ErrInvalidCapacity):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, locker.ErrBelowInUse):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrNoRowsAffected):
		h.logger.Warn(msg, append(fields, zap.Error(err))...)
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "update was not applied; check permissions"})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrSnackUnavailable):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового сотрудника.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	staffID, err := h.service.RegisterStaff(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrStaffExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register staff error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, staffID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию сотрудника и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	staffID, err := h.service.AuthenticateStaff(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login staff error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, staffID)
	w.WriteHeader(http.StatusOK)
}
