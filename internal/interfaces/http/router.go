package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kardex-api/internal/application/inventory"
	"github.com/jhoicas/kardex-api/internal/application/notification"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	LotUC       *inventory.LotUseCase
	SweepUC     *inventory.ExpirySweepUseCase
	GeneratorUC *notification.GeneratorUseCase
	InboxUC     *notification.InboxUseCase
}

// Router registra las rutas de la API. Toda ruta lleva la sede explícita.
func Router(app *fiber.App, deps RouterDeps) {
	site := app.Group("/api/sites/:site_id")

	// Libro de lotes: kind = reagents | supplies
	lotHandler := NewLotHandler(deps.LotUC)
	lots := site.Group("/lots/:kind")
	lots.Post("/", lotHandler.Create)
	lots.Get("/", lotHandler.List)
	lots.Get("/:id", lotHandler.GetByID)
	lots.Put("/:id", lotHandler.Update)
	lots.Delete("/:id", lotHandler.Delete)

	// Proyección de existencias (solo lectura)
	stockHandler := NewStockHandler(deps.LotUC)
	site.Get("/stock", stockHandler.List)

	// Bandeja de notificaciones
	notificationHandler := NewNotificationHandler(deps.InboxUC)
	site.Get("/notifications", notificationHandler.ListUnread)
	site.Put("/notifications/:id/read", notificationHandler.MarkRead)

	// Disparo manual de procesos periódicos
	jobHandler := NewJobHandler(deps.SweepUC, deps.GeneratorUC)
	site.Post("/jobs/expiry-sweep", jobHandler.ExpirySweep)
	site.Post("/jobs/notifications", jobHandler.Notifications)
}
