package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	Router *chi.Mux
}

func NewServer(handler *Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/payments", handler.ProcessPayment)
		r.Post("/callbacks", handler.PaymentCallback)
		r.Get("/capabilities", handler.GetCapabilities)
		r.Get("/payments/{transactionId}/status", handler.GetTransactionStatus)
		r.Post("/payments/{transactionId}/cancel", handler.CancelPayment)
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", handler.GetSettings)
		r.Put("/bridge", handler.ToggleBridge)
		r.Put("/cbdc", handler.ToggleCBDC)
	})

	r.Route("/credentials", func(r chi.Router) {
		r.Get("/", handler.GetCredentials)
		r.Put("/", handler.SaveCredentials)
	})

	r.Route("/devices", func(r chi.Router) {
		r.Get("/status", handler.GetDeviceStatus)
		r.Post("/wallets", handler.RegisterWallet)
	})

	return &Server{Router: r}
}
