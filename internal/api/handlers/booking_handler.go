package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/alpacafarm/booking-service/internal/cache"
)

type AvailabilitySource interface {
	Availability(ctx context.Context, roomID, from, to string) (json.RawMessage, error)
}

type BookingHandler struct {
	calendar AvailabilitySource
	cache    *cache.AvailabilityCache
	logger   *zap.SugaredLogger
}

func NewBookingHandler(calendar AvailabilitySource, c *cache.AvailabilityCache, logger *zap.SugaredLogger) *BookingHandler {
	return &BookingHandler{
		calendar: calendar,
		cache:    c,
		logger:   logger,
	}
}

// GetAvailability handles GET /booking/availability, proxying the
// calendar service with a short-lived cache in front.
func (h *BookingHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := q.Get("from")
	to := q.Get("to")
	roomID := q.Get("roomId")
	if from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from and to are required"})
		return
	}

	key := roomID + "|" + from + "|" + to
	if body, ok := h.cache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
		return
	}

	raw, err := h.calendar.Availability(r.Context(), roomID, from, to)
	if err != nil {
		h.logger.Errorw("availability lookup failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "availability lookup failed"})
		return
	}

	h.cache.Set(key, raw)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}
