package main

import (
	"log"
	"strings"

	"cambios-backend/internal/admin"
	"cambios-backend/internal/auth"
	"cambios-backend/internal/config"
	"cambios-backend/internal/dashboard"
	"cambios-backend/internal/database"
	"cambios-backend/internal/denominations"
	"cambios-backend/internal/models"
	"cambios-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	catalog, err := denominations.Load(cfg.DenominationsPath)
	if err != nil {
		log.Fatalf("No se pudo cargar el catálogo de denominaciones: %v", err)
	}

	stockService := stock.NewService(database.DB, cfg.LockTimeout)

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

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Auth público
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protegido
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Rutas de super admin
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleSuperAdmin))

	// Sucursales
	adminRoutes.Post("/branches", admin.CreateBranchHandler())
	adminRoutes.Get("/branches", admin.ListBranchesHandler())
	adminRoutes.Get("/branches/:id", admin.GetBranchHandler())
	adminRoutes.Put("/branches/:id", admin.UpdateBranchHandler())
	adminRoutes.Post("/branches/:id/operators", admin.CreateOperatorHandler())
	adminRoutes.Get("/branches/:id/operators", admin.ListOperatorsHandler())

	// Divisas
	adminRoutes.Post("/currencies", admin.CreateCurrencyHandler())
	adminRoutes.Put("/currencies/:code", admin.UpdateCurrencyHandler())

	// Divisas (lectura para cualquier usuario autenticado)
	protected.Get("/currencies", admin.ListCurrenciesHandler())

	// Catálogo de denominaciones (referencia estática)
	protected.Get("/denominations", stock.CatalogHandler(catalog))
	protected.Get("/denominations/:currency", stock.CatalogCurrencyHandler(catalog))

	// Stock de efectivo por sucursal
	protected.Post("/stock/deposit", stock.DepositHandler(stockService))
	protected.Post("/stock/withdraw", stock.WithdrawHandler(stockService))
	protected.Post("/stock/allocate", stock.AllocateHandler(stockService, catalog))
	protected.Post("/stock/reserve", stock.ReserveHandler(stockService))
	protected.Post("/stock/movements/:id/confirm", stock.ConfirmMovementHandler(stockService))
	protected.Post("/stock/movements/:id/cancel", stock.CancelMovementHandler(stockService))
	protected.Get("/stock/:branchID", stock.GetStockHandler(stockService))
	protected.Get("/stock/:branchID/movements", stock.ListMovementsHandler(stockService))
	protected.Get("/stock/:branchID/currencies", stock.CurrenciesWithStockHandler(stockService))
	protected.Get("/stock/:branchID/:currency/denominations", stock.AvailableDenominationsHandler(stockService))

	// Tableros
	protected.Get("/dashboard/stock-totals/:branchID", dashboard.StockTotalsHandler(stockService))

	log.Println("Servidor escuchando en el puerto:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
