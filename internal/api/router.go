package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/alpacafarm/booking-service/internal/api/handlers"
	"github.com/alpacafarm/booking-service/internal/api/middleware"
)

type Deps struct {
	Vouchers    *handlers.VoucherHandler
	Webhooks    *handlers.WebhookHandler
	Booking     *handlers.BookingHandler
	Contact     *handlers.ContactHandler
	RateLimiter *middleware.RateLimiter
}

// NewRouter builds the HTTP router for the booking-service
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Route("/vouchers", func(r chi.Router) {
		r.Get("/options", d.Vouchers.GetOptions)
		r.Post("/", d.Vouchers.Purchase)
		// fixed-window throttle: codes are guessable given enough tries
		r.With(d.RateLimiter.Limit("redeem", 20, time.Minute)).
			Post("/redeem", d.Vouchers.Redeem)
	})

	r.Get("/booking/availability", d.Booking.GetAvailability)
	r.Post("/webhooks/payment", d.Webhooks.HandlePaymentEvent)
	r.Post("/contact", d.Contact.Send)

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
