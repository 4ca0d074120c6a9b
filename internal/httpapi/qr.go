package httpapi

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"tableside/restaurant-service/internal/models"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 290

type qrResponse struct {
	Success     bool   `json:"success"`
	QRCode      string `json:"qr_code"`
	URL         string `json:"url"`
	TableNumber int    `json:"table_number"`
}

func (h *Handler) handleQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requireRole(w, r, models.RoleAdmin) {
		return
	}
	number, ok := tableNumberFromPath(r.URL.Path, "/api/qr/")
	if !ok || !models.ValidTableNumber(number) {
		writeError(w, r, http.StatusNotFound, "table_not_found", "table not found")
		return
	}

	url := h.baseURL(r) + "/customer/" + strconv.Itoa(number)
	png, err := qrcode.Encode(url, qrcode.Low, qrSize)
	if err != nil {
		h.logger.WithError(err).WithField("table_number", number).Error("encode qr code")
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, qrResponse{
		Success:     true,
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		URL:         url,
		TableNumber: number,
	})
}

// baseURL prefers the configured public address and falls back to the request host.
func (h *Handler) baseURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded == "http" || forwarded == "https" {
		scheme = forwarded
	}
	return scheme + "://" + r.Host
}
