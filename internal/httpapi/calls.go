package httpapi

import (
	"net/http"

	"tableside/restaurant-service/internal/events"
	"tableside/restaurant-service/internal/models"
	"tableside/restaurant-service/internal/store"
)

type createCallRequest struct {
	TableNumber int    `json:"table_number"`
	Message     string `json:"message"`
}

type callResponse struct {
	Success bool        `json:"success"`
	Call    models.Call `json:"call"`
}

type callsResponse struct {
	Calls []models.Call `json:"calls"`
}

type closedCall struct {
	CallID string `json:"id"`
}

func (h *Handler) handleCalls(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !requireRole(w, r, models.RoleWaiter) {
			return
		}
		calls, err := h.store.ListCalls(r.Context(), models.CallPending)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, callsResponse{Calls: calls})
	case http.MethodPost:
		h.createCall(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createCall(w http.ResponseWriter, r *http.Request) {
	var req createCallRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TableNumber <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "table_number must be a positive integer")
		return
	}

	call, err := h.store.CreateCall(r.Context(), store.CreateCallInput{
		TableNumber: req.TableNumber,
		Message:     req.Message,
		CreatedAt:   h.now().UTC(),
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.publish(r.Context(), events.CallCreated, call)
	writeJSON(w, http.StatusOK, callResponse{Success: true, Call: call})
}

func (h *Handler) handleCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requireRole(w, r, models.RoleWaiter) {
		return
	}
	callID := pathID(r.URL.Path, "/api/calls/")
	if callID != "" {
		if err := h.store.DeleteCall(r.Context(), callID); err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		h.publish(r.Context(), events.CallClosed, closedCall{CallID: callID})
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
