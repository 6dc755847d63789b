package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go-udhar-pos/internal/config"
	"go-udhar-pos/internal/handler"
	"go-udhar-pos/internal/middleware"
	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/realtime"
	"go-udhar-pos/internal/receipt"
	"go-udhar-pos/internal/repository"
	"go-udhar-pos/internal/repository/memory"
	"go-udhar-pos/internal/repository/mongodb"
	"go-udhar-pos/internal/scheduler"
	"go-udhar-pos/internal/service"
	"go-udhar-pos/internal/store"
	"go-udhar-pos/internal/ws"
	"go-udhar-pos/pkg/database"
	"go-udhar-pos/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

type repos struct {
	products  repository.ProductRepository
	invoices  repository.InvoiceRepository
	users     repository.UserRepository
	movements repository.MovementRepository
}

func main() {
	envFile := flag.String("env", "", "optional .env file")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}

	log := logger.Must(logger.New(cfg.Debug))
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Setup Persistence
	var r repos
	if cfg.UsesDatabase() {
		db, err := database.ConnectDB(cfg.DSN(), cfg.Debug, logger.Named(log, "gorm"))
		if err != nil {
			log.Fatal("database unavailable", zap.Error(err))
		}
		if err := db.AutoMigrate(&model.Product{}, &model.Invoice{}, &model.User{}, &model.StockMovement{}); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
		if err := repository.InstallChangeNotifications(db, cfg.Database.RealtimeChannel); err != nil {
			log.Warn("change notifications not installed, realtime sync disabled", zap.Error(err))
		}
		r = repos{
			products:  repository.NewProductRepo(db),
			invoices:  repository.NewInvoiceRepo(db),
			users:     repository.NewUserRepo(db),
			movements: repository.NewMovementRepo(db),
		}
	} else {
		log.Warn("no database configured, running on in-memory repositories")
		mem := memory.New()
		r = repos{products: mem.Products(), invoices: mem.Invoices(), users: mem.Users(), movements: mem.Movements()}
	}

	// 3. Load Store
	st := store.New()
	if err := st.Load(ctx, r.products, r.invoices); err != nil {
		log.Fatal("initial load failed", zap.Error(err))
	}
	log.Info("store loaded", zap.Int("products", len(st.Products())), zap.Int("invoices", len(st.Invoices())))

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub(logger.Named(log, "ws"))
	go wsHub.Run(ctx)

	// 5. Dependency Injection (Wiring Layers)
	loc := cfg.Location()

	catalogService := service.NewCatalogService(st, r.products, wsHub, logger.Named(log, "svc.catalog"))
	settlementService := service.NewSettlementService(st, r.products, r.invoices, wsHub, logger.Named(log, "svc.settlement"))
	ledgerService := service.NewLedgerService(st, r.invoices, wsHub, logger.Named(log, "svc.ledger"))
	reportService := service.NewReportService(st, r.movements, loc)
	cartService := service.NewCartService(st, settlementService)
	authService := service.NewAuthService(r.users, logger.Named(log, "svc.auth"))
	userService := service.NewUserService(r.users, logger.Named(log, "svc.user"))

	if err := userService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Error("failed to seed admin user", zap.Error(err))
	}

	renderer := receipt.NewRenderer(receipt.StoreInfo{
		Name:    cfg.Store.Name,
		Address: cfg.Store.Address,
		Phone:   cfg.Store.Phone,
	}, loc)

	productHandler := handler.NewProductHandler(catalogService)
	cartHandler := handler.NewCartHandler(cartService)
	invoiceHandler := handler.NewInvoiceHandler(settlementService, renderer)
	udharHandler := handler.NewUdharHandler(ledgerService)
	reportHandler := handler.NewReportHandler(reportService)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)

	// 6. Background Workers
	if cfg.UsesDatabase() {
		listener := realtime.NewListener(cfg.DSN(), cfg.Database.RealtimeChannel, st, r.products, r.invoices,
			func(ctx context.Context) error { return st.Load(ctx, r.products, r.invoices) },
			logger.Named(log, "realtime"))
		go listener.Run(ctx)
	}

	var archive mongodb.ReportArchive
	if cfg.MongoDB.URI != "" {
		mctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		repo, err := mongodb.NewMongoDBRepository(mctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		cancel()
		if err != nil {
			log.Error("report archive disabled", zap.Error(err))
		} else {
			archive = repo
			defer func() {
				cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = repo.Close(cctx)
			}()
		}
	}

	sched := scheduler.NewScheduler(cfg.Scheduler.OverdueCron, cfg.Scheduler.ArchiveCron, loc,
		ledgerService, reportService, archive, wsHub, logger.Named(log, "scheduler"))
	if err := sched.Start(); err != nil {
		log.Fatal("scheduler failed to start", zap.Error(err))
	}
	defer sched.Stop()

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Udhar POS v1.0",
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// 8. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	api.Post("/auth/login", authHandler.Login)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(authService))
	adminOnly := middleware.RequireAdmin()

	protected.Get("/auth/me", authHandler.Me)
	protected.Post("/auth/change-password", authHandler.ChangePassword)

	// Catalog
	protected.Get("/products", productHandler.GetProducts)
	protected.Get("/products/low-stock", productHandler.GetLowStock)
	protected.Get("/products/:id", productHandler.GetProduct)
	protected.Get("/products/:id/units", productHandler.GetUnitOptions)
	protected.Get("/products/:id/movements", reportHandler.GetProductMovements)
	protected.Post("/products", adminOnly, productHandler.CreateProduct)
	protected.Put("/products/:id", adminOnly, productHandler.UpdateProduct)
	protected.Delete("/products/:id", adminOnly, productHandler.DeleteProduct)

	// Cart & Checkout
	protected.Get("/cart", cartHandler.GetCart)
	protected.Delete("/cart", cartHandler.ClearCart)
	protected.Post("/cart/items", cartHandler.AddItem)
	protected.Patch("/cart/items/:index", cartHandler.UpdateItem)
	protected.Post("/checkout", cartHandler.Checkout)

	// Invoices
	protected.Get("/invoices", invoiceHandler.GetInvoices)
	protected.Get("/invoices/:id", invoiceHandler.GetInvoice)
	protected.Get("/invoices/:id/receipt", invoiceHandler.GetReceipt)
	protected.Delete("/invoices/:id", adminOnly, invoiceHandler.DeleteInvoice)

	// Udhar
	protected.Get("/udhar", udharHandler.GetOutstanding)
	protected.Get("/udhar/overdue", udharHandler.GetOverdue)
	protected.Post("/udhar/:id/payments", udharHandler.CollectPayment)

	// Reports
	protected.Get("/reports/monthly", reportHandler.GetMonthly)
	protected.Get("/reports/dashboard", reportHandler.GetDashboard)
	protected.Get("/reports/valuation", reportHandler.GetValuation)
	protected.Get("/reports/stock-movement", reportHandler.GetStockMovement)

	// Users
	protected.Get("/users", adminOnly, userHandler.GetUsers)
	protected.Post("/users", adminOnly, userHandler.CreateUser)
	protected.Delete("/users/:id", adminOnly, userHandler.DeleteUser)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(wsHub.Serve))

	// 9. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server exited")
}
