package httpapi

import (
	"net/http"
	"strings"

	"tableside/restaurant-service/internal/events"
	"tableside/restaurant-service/internal/models"
)

type tableStatusRequest struct {
	Status string `json:"status"`
}

type tableResponse struct {
	Success bool         `json:"success"`
	Table   models.Table `json:"table"`
}

type tablesResponse struct {
	Tables []models.Table `json:"tables"`
}

func (h *Handler) handleTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tablesResponse{Tables: tables})
}

func (h *Handler) handleTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requireRole(w, r, models.RoleWaiter) {
		return
	}
	number, ok := tableNumberFromPath(r.URL.Path, "/api/tables/")
	if !ok {
		writeError(w, r, http.StatusNotFound, "table_not_found", "table not found")
		return
	}
	var req tableStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	table, err := h.store.UpdateTableStatus(r.Context(), number, strings.TrimSpace(req.Status))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.publish(r.Context(), events.TableUpdated, table)
	writeJSON(w, http.StatusOK, tableResponse{Success: true, Table: table})
}
