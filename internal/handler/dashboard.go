package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/studyhall/internal/filter"
	"github.com/mmeshcher/studyhall/internal/locker"
	"github.com/mmeshcher/studyhall/internal/report"
)

type moneyResponse struct {
	Amount  float64 `json:"amount"`
	Display string  `json:"display"`
}

func newMoney(paise int64) moneyResponse {
	return moneyResponse{Amount: report.Rupees(paise), Display: report.FormatINR(paise)}
}

type revenueResponse struct {
	Total      moneyResponse `json:"total"`
	Membership moneyResponse `json:"membership"`
	Snack      moneyResponse `json:"snack"`
}

type dayResponse struct {
	Date       string  `json:"date"`
	Label      string  `json:"label"`
	Snack      float64 `json:"snack"`
	Membership float64 `json:"membership"`
}

type dashboardResponse struct {
	Tab      string          `json:"tab"`
	Mode     string          `json:"mode"`
	Days     int             `json:"days"`
	Since    string          `json:"since"`
	Revenue  revenueResponse `json:"revenue"`
	Joinings int             `json:"joinings"`
	Series   []dayResponse   `json:"series"`
	Plans    map[string]int  `json:"plans"`
	Statuses map[string]int  `json:"statuses"`
	Lockers  locker.Usage    `json:"lockers"`
}

// GetDashboard возвращает показатели панели для окна и фильтра оплаты из параметров запроса.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	branchID, ok := uuidParam(w, r, "branchID")
	if !ok {
		return
	}

	state := filter.FromQuery(r.URL.Query())

	d, err := h.service.Dashboard(r.Context(), branchID, report.Window{Days: state.Days, Mode: state.Mode})
	if err != nil {
		h.writeError(w, err, "dashboard error", zap.Stringer("branchID", branchID))
		return
	}

	series := make([]dayResponse, 0, len(d.Series))
	for _, b := range d.Series {
		series = append(series, dayResponse{
			Date:       b.Date,
			Label:      b.Label,
			Snack:      report.Rupees(b.SnackPaise),
			Membership: report.Rupees(b.MembershipPaise),
		})
	}

	statuses := make(map[string]int, len(d.Statuses))
	for st, n := range d.Statuses {
		statuses[string(st)] = n
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Tab:   string(state.Tab),
		Mode:  string(d.Window.Mode),
		Days:  d.Window.Days,
		Since: d.Since.Format(time.RFC3339),
		Revenue: revenueResponse{
			Total:      newMoney(d.Revenue.TotalPaise),
			Membership: newMoney(d.Revenue.MembershipPaise),
			Snack:      newMoney(d.Revenue.SnackPaise),
		},
		Joinings: d.Joinings,
		Series:   series,
		Plans:    d.Plans,
		Statuses: statuses,
		Lockers:  d.Lockers,
	})
}
