package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/studyhall/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса учебного зала.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/staff", func(r chi.Router) {
		r.Use(custommiddleware.RateLimit(h.authLimiter))

		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	r.Route("/api/branches/{branchID}", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Get("/snacks", h.GetSnacks)
		r.Post("/snacks", h.AddSnack)
		r.Delete("/snacks/{snackID}", h.DeleteSnack)
		r.Post("/snacks/{snackID}/sales", h.SellSnack)

		r.Get("/lockers", h.GetLockers)
		r.Put("/lockers", h.UpdateLockers)

		r.Get("/members", h.GetMembers)
		r.Post("/members", h.AddMember)
		r.Post("/members/{memberID}/renew", h.RenewMember)

		r.Get("/dashboard", h.GetDashboard)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
