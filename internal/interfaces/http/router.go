package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
	"github.com/jhoicas/onboarding-contable/pkg/jwt"
	"github.com/jhoicas/onboarding-contable/pkg/logger"
)

// RouterDeps dependencias para el router. Store y Reader son opcionales (nil sin base de datos).
type RouterDeps struct {
	Options   onboarding.Options
	Store     onboarding.ResultStore
	Reader    onboarding.RunReader
	Locker    onboarding.RunLocker
	Log       *logger.Logger
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	recon := protected.Group("/reconciliations")
	h := NewReconciliationHandler(deps.Options, deps.Store, deps.Reader, deps.Locker, deps.Log)
	recon.Post("/", RequireRole(jwt.RoleAdmin, jwt.RoleContador), h.Run)
	readers := RequireRole(jwt.RoleAdmin, jwt.RoleContador, jwt.RoleAuditor)
	recon.Get("/", readers, h.List)
	recon.Get("/:id", readers, h.GetByID)
	recon.Get("/:id/audit", readers, h.Audit)
}
