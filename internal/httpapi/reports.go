package httpapi

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tableside/restaurant-service/internal/models"
	"tableside/restaurant-service/internal/store"
)

type reportResponse struct {
	store.OrderSummary
	Period string `json:"period"`
	From   string `json:"from,omitempty"`
}

func (h *Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requireRole(w, r, models.RoleAdmin) {
		return
	}
	period := reportPeriod(r)
	from := store.PeriodStart(period, h.now())

	summary, err := h.store.SummarizeOrders(r.Context(), from)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	resp := reportResponse{OrderSummary: summary, Period: period}
	if !from.IsZero() {
		resp.From = from.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReportExport streams the orders created in the requested window as CSV.
func (h *Handler) handleReportExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requireRole(w, r, models.RoleAdmin) {
		return
	}
	period := reportPeriod(r)
	from := store.PeriodStart(period, h.now())

	orders, err := h.store.ListOrders(r.Context(), "")
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"orders-%s.csv\"", period))
	w.WriteHeader(http.StatusOK)

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"id", "table_number", "status", "items", "total", "created_at", "updated_at"})
	for _, order := range orders {
		if order.CreatedAt.Before(from) {
			continue
		}
		_ = writer.Write([]string{
			order.OrderID,
			strconv.Itoa(order.TableNumber),
			string(order.Status),
			strconv.Itoa(itemCount(order.Items)),
			strconv.FormatFloat(order.Total, 'f', 2, 64),
			order.CreatedAt.Format(time.RFC3339),
			order.UpdatedAt.Format(time.RFC3339),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.WithError(err).Warn("write report export")
	}
}

func reportPeriod(r *http.Request) string {
	period := strings.TrimSpace(r.URL.Query().Get("period"))
	if period == "" {
		return store.DefaultPeriod
	}
	return period
}

func itemCount(items []models.OrderItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
