package main

import (
	"log"
	"strings"

	"auditoria-backend/internal/audit"
	"auditoria-backend/internal/auth"
	"auditoria-backend/internal/config"
	"auditoria-backend/internal/database"
	"auditoria-backend/internal/models"
	"auditoria-backend/internal/references"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)
	database.InitRedis(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Error inesperado:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error inesperado del servidor",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Auth pública
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Rutas protegidas
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Consulta (cualquier rol autenticado)
	protected.Get("/references", references.ListReferencesHandler())
	protected.Get("/references/:code", references.GetReferenceHandler())
	protected.Get("/references/:code/history", references.HistoryHandler())

	// Transcripción de conteos: operarios y administradores. Cada guardado
	// dispara la reconciliación en segundo plano.
	protected.Post("/references/:code/counts",
		auth.RequireRole(models.RoleOperario, models.RoleAdmin, models.RoleSuperAdmin),
		references.SaveCountHandler())

	// Rutas de administración
	adminRoutes := protected.Group("")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))

	adminRoutes.Post("/references", references.CreateReferenceHandler())
	adminRoutes.Post("/references/:code/locations", references.CreateLocationHandler())
	adminRoutes.Post("/references/:code/reconcile", references.ReconcileHandler())
	adminRoutes.Put("/references/:code/counts", references.EditCountHandler())
	adminRoutes.Post("/references/:code/validate-manual", references.ValidateManualHandler())
	adminRoutes.Post("/references/:code/force-close", references.ForceCloseHandler())
	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())

	// Ronda crítica: exclusiva del superadmin
	superRoutes := protected.Group("")
	superRoutes.Use(auth.RequireRole(models.RoleSuperAdmin))

	superRoutes.Post("/auth/users", auth.CreateUserHandler())
	superRoutes.Post("/references/:code/force-close-critical", references.ForceCloseCriticalHandler())

	log.Println("Servidor escuchando en el puerto", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
