package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"tableside/restaurant-service/internal/events"
	"tableside/restaurant-service/internal/models"
	"tableside/restaurant-service/internal/store"
)

// orderLineRequest reads only what pricing needs. Devices may echo whole menu
// entries back, so other keys on a line are ignored.
type orderLineRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type createOrderRequest struct {
	TableNumber int               `json:"table_number"`
	Items       []json.RawMessage `json:"items"`
	Total       *float64          `json:"total"`
}

type advanceOrderRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	Success bool         `json:"success"`
	Order   models.Order `json:"order"`
}

type ordersResponse struct {
	Orders []models.Order `json:"orders"`
}

func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listOrders(w, r)
	case http.MethodPost:
		h.createOrder(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r) {
		return
	}
	status := models.OrderStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	orders, err := h.store.ListOrders(r.Context(), status)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ordersResponse{Orders: orders})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TableNumber <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "table_number must be a positive integer")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, r, http.StatusBadRequest, "empty_order", "order must contain at least one item")
		return
	}
	lines := make([]store.OrderLineInput, 0, len(req.Items))
	for _, raw := range req.Items {
		var item orderLineRequest
		if err := json.Unmarshal(raw, &item); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_json", "invalid order line")
			return
		}
		id := strings.TrimSpace(item.ID)
		if id == "" {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "every item needs an id")
			return
		}
		lines = append(lines, store.OrderLineInput{ItemID: id, Quantity: item.Quantity})
	}

	order, err := h.store.CreateOrder(r.Context(), store.CreateOrderInput{
		TableNumber: req.TableNumber,
		Items:       lines,
		Total:       req.Total,
		CreatedAt:   h.now().UTC(),
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.publish(r.Context(), events.OrderCreated, order)
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: order})
}

func (h *Handler) handleOrder(w http.ResponseWriter, r *http.Request) {
	orderID := pathID(r.URL.Path, "/api/orders/")
	if orderID == "" {
		writeError(w, r, http.StatusNotFound, "order_not_found", "order not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		order, err := h.store.GetOrder(r.Context(), orderID)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: order})
	case http.MethodPut:
		h.advanceOrder(w, r, orderID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) advanceOrder(w http.ResponseWriter, r *http.Request, orderID string) {
	if !requireRole(w, r, models.RoleKitchen) {
		return
	}
	var req advanceOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status := models.OrderStatus(strings.TrimSpace(req.Status))
	if status == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "status is required")
		return
	}

	order, err := h.store.AdvanceOrder(r.Context(), store.AdvanceOrderInput{
		OrderID:    orderID,
		Status:     status,
		AllowSkip:  !h.strict,
		OccurredAt: h.now().UTC(),
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.publish(r.Context(), events.OrderUpdated, order)
	writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: order})
}
