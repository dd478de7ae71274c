package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/workshop-management/internal/authz"
	"github.com/frahmantamala/workshop-management/internal/hiring"
	"github.com/frahmantamala/workshop-management/internal/order"
	"github.com/frahmantamala/workshop-management/internal/tenant"
	"github.com/frahmantamala/workshop-management/internal/transport/middleware"
	"github.com/frahmantamala/workshop-management/internal/user"
)

// RegisterAllRoutes wires the whole API surface under /api/v1. Everything
// except health requires verified init data; mutating tenant-scoped routes
// additionally pass the capability gate.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	allowedOrigins string,
	identityMiddleware func(http.Handler) http.Handler,
	gate *authz.Gate,
	userHandler *user.Handler,
	tenantHandler *tenant.Handler,
	hiringHandler *hiring.Handler,
	orderHandler *order.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Group(func(pr chi.Router) {
			pr.Use(identityMiddleware)

			// The identity middleware already upserted the user, so sync
			// and me are the same read.
			pr.Post("/users/sync", userHandler.GetCurrentUser)
			pr.Get("/users/me", userHandler.GetCurrentUser)
			pr.Post("/users/me/active-service", userHandler.SetActiveService)

			pr.Route("/services", func(sr chi.Router) {
				sr.Post("/", tenantHandler.CreateService)
				sr.Get("/", tenantHandler.ListServices)

				sr.Route("/{serviceID}", func(svc chi.Router) {
					svc.Get("/", tenantHandler.GetService)
					svc.Patch("/", tenantHandler.UpdateService)
					svc.Delete("/", tenantHandler.DeleteService)

					svc.Group(func(er chi.Router) {
						er.Use(gate.RequireCapability(tenant.CapManageEmployees))
						er.Get("/employees", tenantHandler.ListEmployees)
						er.Post("/employees", tenantHandler.AddEmployee)
					})

					svc.Route("/orders", func(or chi.Router) {
						or.Group(func(g chi.Router) {
							g.Use(gate.RequireCapability(tenant.CapViewOrders))
							g.Get("/", orderHandler.ListOrders)
							g.Get("/{orderID}", orderHandler.GetOrder)
							g.Get("/next-number", orderHandler.NextOrderNumber)
						})
						or.Group(func(g chi.Router) {
							g.Use(gate.RequireCapability(tenant.CapCreateOrders))
							g.Post("/", orderHandler.CreateOrder)
						})
						or.Group(func(g chi.Router) {
							g.Use(gate.RequireCapability(tenant.CapEditOrders))
							g.Patch("/{orderID}", orderHandler.UpdateOrder)
						})
						or.Group(func(g chi.Router) {
							g.Use(gate.RequireCapability(tenant.CapDeleteOrders))
							g.Delete("/{orderID}", orderHandler.DeleteOrder)
						})
					})
				})
			})

			pr.Patch("/employees/{id}", tenantHandler.UpdateEmployee)
			pr.Delete("/employees/{id}", tenantHandler.RemoveEmployee)

			pr.Route("/hiring", func(hr chi.Router) {
				hr.Post("/queue", hiringHandler.RequestHire)
				hr.Get("/queue", hiringHandler.Queue)
				hr.Get("/applications", hiringHandler.Applications)
				hr.Get("/stats", hiringHandler.Stats)
				hr.Post("/scan", hiringHandler.Scan)
				hr.Post("/queue/{entryID}/approve", hiringHandler.Approve)
				hr.Post("/queue/{entryID}/reject", hiringHandler.Reject)
			})
		})
	})
}
