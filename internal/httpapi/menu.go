package httpapi

import (
	"net/http"
	"strings"

	"tableside/restaurant-service/internal/events"
	"tableside/restaurant-service/internal/models"
	"tableside/restaurant-service/internal/store"
)

type menuResponse struct {
	Menu       []models.MenuItem `json:"menu"`
	Categories []models.Category `json:"categories"`
}

type upsertMenuItemRequest struct {
	ID       string   `json:"id"`
	Name     *string  `json:"name"`
	Price    *float64 `json:"price"`
	Category *string  `json:"category"`
}

type menuItemResponse struct {
	Success bool            `json:"success"`
	Item    models.MenuItem `json:"item"`
}

type upsertCategoryRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type categoryResponse struct {
	Success  bool            `json:"success"`
	Category models.Category `json:"category"`
}

type menuChange struct {
	Action     string           `json:"action"`
	Item       *models.MenuItem `json:"item,omitempty"`
	ItemID     string           `json:"item_id,omitempty"`
	Category   *models.Category `json:"category,omitempty"`
	CategoryID string           `json:"category_id,omitempty"`
}

func (h *Handler) handleMenu(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := h.store.ListMenuItems(r.Context())
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		categories, err := h.store.ListCategories(r.Context())
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, menuResponse{Menu: items, Categories: categories})
	case http.MethodPost:
		h.upsertMenuItem(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) upsertMenuItem(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, models.RoleAdmin) {
		return
	}
	var req upsertMenuItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := store.MenuItemInput{ItemID: strings.TrimSpace(req.ID)}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "name must not be empty")
			return
		}
		input.Name = &name
	}
	if req.Price != nil {
		if *req.Price < 0 {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "price must not be negative")
			return
		}
		input.Price = req.Price
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		input.CategoryID = &category
	}
	if input.ItemID == "" && (input.Name == nil || input.Price == nil || input.CategoryID == nil) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "name, price, and category are required")
		return
	}

	item, err := h.store.UpsertMenuItem(r.Context(), input)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.publish(r.Context(), events.MenuUpdated, menuChange{Action: "upsert", Item: &item})
	writeJSON(w, http.StatusOK, menuItemResponse{Success: true, Item: item})
}

func (h *Handler) handleMenuItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requireRole(w, r, models.RoleAdmin) {
		return
	}
	itemID := pathID(r.URL.Path, "/api/menu/")
	if itemID != "" {
		if err := h.store.DeleteMenuItem(r.Context(), itemID); err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		h.publish(r.Context(), events.MenuUpdated, menuChange{Action: "delete", ItemID: itemID})
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requireRole(w, r, models.RoleAdmin) {
		return
	}
	var req upsertCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	category, err := h.store.UpsertCategory(r.Context(), store.CategoryInput{
		CategoryID: strings.TrimSpace(req.ID),
		Name:       name,
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.publish(r.Context(), events.MenuUpdated, menuChange{Action: "upsert_category", Category: &category})
	writeJSON(w, http.StatusOK, categoryResponse{Success: true, Category: category})
}

func (h *Handler) handleCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requireRole(w, r, models.RoleAdmin) {
		return
	}
	categoryID := pathID(r.URL.Path, "/api/categories/")
	if categoryID != "" {
		if err := h.store.DeleteCategory(r.Context(), categoryID); err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		h.publish(r.Context(), events.MenuUpdated, menuChange{Action: "delete_category", CategoryID: categoryID})
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
