package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tableside/restaurant-service/internal/events"
	"tableside/restaurant-service/internal/store"

	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	store         store.Store
	publisher     events.Publisher
	logger        *logrus.Logger
	strict        bool
	sessionTTL    time.Duration
	publicBaseURL string
	secureCookie  bool
	now           func() time.Time
}

type Options struct {
	Publisher     events.Publisher
	Logger        *logrus.Logger
	SessionTTL    time.Duration
	PublicBaseURL string
	SecureCookie  bool
	Now           func() time.Time

	// StrictTransitions rejects forward skips such as pending -> ready.
	StrictTransitions bool
}

type errorResponse struct {
	Success   bool          `json:"success"`
	RequestID string        `json:"request_id,omitempty"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func NewHandler(store store.Store, options Options) *Handler {
	publisher := options.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	logger := options.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		store:         store,
		publisher:     publisher,
		logger:        logger,
		strict:        options.StrictTransitions,
		sessionTTL:    options.SessionTTL,
		publicBaseURL: strings.TrimRight(options.PublicBaseURL, "/"),
		secureCookie:  options.SecureCookie,
		now:           now,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/login", h.handleLogin)
	mux.HandleFunc("/api/logout", h.handleLogout)
	mux.HandleFunc("/api/menu", h.handleMenu)
	mux.HandleFunc("/api/menu/", h.handleMenuItem)
	mux.HandleFunc("/api/categories", h.handleCategories)
	mux.HandleFunc("/api/categories/", h.handleCategory)
	mux.HandleFunc("/api/orders", h.handleOrders)
	mux.HandleFunc("/api/orders/", h.handleOrder)
	mux.HandleFunc("/api/tables", h.handleTables)
	mux.HandleFunc("/api/tables/", h.handleTable)
	mux.HandleFunc("/api/calls", h.handleCalls)
	mux.HandleFunc("/api/calls/", h.handleCall)
	mux.HandleFunc("/api/reports", h.handleReports)
	mux.HandleFunc("/api/reports/export", h.handleReportExport)
	mux.HandleFunc("/api/qr/", h.handleQR)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// publish stamps the event with the handler clock and hands it to the publisher.
func (h *Handler) publish(ctx context.Context, eventType string, payload any) {
	h.publisher.Publish(ctx, events.New(eventType, payload, h.now().UTC()))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

// pathID returns the single path segment after prefix, or "" if there is none
// or more than one.
func pathID(path, prefix string) string {
	id := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

func tableNumberFromPath(path, prefix string) (int, bool) {
	number, err := strconv.Atoi(pathID(path, prefix))
	if err != nil {
		return 0, false
	}
	return number, true
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid username or password"
	case errors.Is(err, store.ErrSessionNotFound):
		return http.StatusUnauthorized, "unauthorized", "invalid session"
	case errors.Is(err, store.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found", "order not found"
	case errors.Is(err, store.ErrTableNotFound):
		return http.StatusNotFound, "table_not_found", "table not found"
	case errors.Is(err, store.ErrMenuItemNotFound):
		return http.StatusNotFound, "menu_item_not_found", "menu item not found"
	case errors.Is(err, store.ErrCategoryNotFound):
		return http.StatusNotFound, "category_not_found", "category not found"
	case errors.Is(err, store.ErrCategoryMissing):
		return http.StatusBadRequest, "category_not_found", "category does not exist"
	case errors.Is(err, store.ErrInvalidStatus):
		return http.StatusBadRequest, "invalid_status", "status must be one of pending, preparing, ready, delivered"
	case errors.Is(err, store.ErrInvalidTableStatus):
		return http.StatusBadRequest, "invalid_table_status", "status must be a lowercase token of at most 32 characters"
	case errors.Is(err, store.ErrEmptyOrder):
		return http.StatusBadRequest, "empty_order", "order must contain at least one item"
	case errors.Is(err, store.ErrUnknownMenuItem):
		return http.StatusBadRequest, "unknown_menu_item", err.Error()
	case errors.Is(err, store.ErrInvalidQuantity):
		return http.StatusBadRequest, "invalid_quantity", err.Error()
	case errors.Is(err, store.ErrTotalMismatch):
		return http.StatusBadRequest, "total_mismatch", err.Error()
	case errors.Is(err, store.ErrInvalidMenuItem):
		return http.StatusBadRequest, "invalid_request", "name, price, and category are required"
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", err.Error()
	case errors.Is(err, store.ErrCategoryInUse):
		return http.StatusConflict, "category_in_use", "category is still used by menu items"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

// writeStoreError maps err and logs anything that is not a caller mistake.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("store operation failed")
	}
	writeError(w, r, status, code, msg)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestIDFromRequest(r),
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func requestIDFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}
