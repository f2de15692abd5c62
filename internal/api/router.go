package api

import (
	"supportbot/internal/bridge"
	"supportbot/internal/config"
	"supportbot/internal/db"

	"github.com/go-chi/chi/v5"
)

// ApiDependencies содержит зависимости для обработчиков API.
type ApiDependencies struct {
	Config      *config.Config
	Store       *db.Store
	Bridge      *bridge.Router
	BotUsername string
}

// SetupRoutes настраивает все маршруты операторского API.
func SetupRoutes(r *chi.Mux, deps *ApiDependencies) {
	r.Get("/api/health", deps.HealthHandler)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Config.APIToken))

		r.Get("/api/tickets", deps.ListTicketsHandler)
		r.Get("/api/tickets/{code}", deps.GetTicketHandler)
		r.Post("/api/tickets/{code}/status", deps.UpdateTicketStatusHandler)
		r.Get("/api/tickets/{code}/qr", deps.TicketQRHandler)
		r.Get("/api/reports/tickets.xlsx", deps.TicketsReportHandler)
	})
}
