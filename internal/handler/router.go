package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/billdesk/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса выставления счетов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/ping", h.Ping)

	r.Route("/api", func(r chi.Router) {
		r.Post("/operator/register", h.Register)
		r.Post("/operator/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware)

			r.Post("/bills", h.GenerateBill)
			r.Get("/bills", h.GetHistory)
			r.Get("/bills/{id}/pdf", h.ReprintBill)

			r.Get("/items", h.GetItems)
			r.Post("/items", h.AddItem)
			r.Delete("/items/{id}", h.DeleteItem)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
