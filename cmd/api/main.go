package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-pos-ledger/internal/handler"
	"go-pos-ledger/internal/middleware"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/service"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// 2. Setup Database
	db := database.ConnectDB()
	// Auto Migrate (Hati-hati di production, sebaiknya pakai tools migrasi terpisah)
	db.AutoMigrate(
		&model.Product{}, &model.Store{},
		&model.InventoryRecord{}, &model.StockMovement{},
		&model.User{}, &model.Privilege{}, &model.Role{},
	)

	// 3. Seed default privileges, roles, admin user, and default store
	seedDefaults(db)

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	storeRepo := repository.NewStoreRepo(db)
	inventoryRepo := repository.NewInventoryRepo(db)
	movementRepo := repository.NewMovementRepo(db)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	stockService := service.NewStockService(inventoryRepo, movementRepo, productRepo, db, wsHub)
	costingService := service.NewCostingService(inventoryRepo, movementRepo, db)
	catalogService := service.NewCatalogService(productRepo, storeRepo, wsHub)
	dashService := service.NewDashboardService(movementRepo, inventoryRepo, productRepo)
	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(userRepo, privilegeRepo, roleRepo)

	stockHandler := handler.NewStockHandler(stockService, costingService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	dashHandler := handler.NewDashboardHandler(dashService)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleRepo)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "POS Ledger v1.0",
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 7. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/validate-token", authHandler.ValidateToken)

	// ============ PROTECTED ROUTES ============
	// All routes below require authentication
	protected := api.Group("", middleware.RequireAuth(userRepo))

	// Dashboard Routes
	protected.Get("/dashboard/stats", dashHandler.GetDashboardStats)
	protected.Get("/dashboard/throughput", dashHandler.GetDailyThroughput)
	protected.Get("/dashboard/alerts", dashHandler.GetStockAlerts)
	protected.Get("/dashboard/movements", dashHandler.GetRecentMovements)

	// Product Catalog Routes
	protected.Get("/products", catalogHandler.GetProducts)
	protected.Get("/products/barcode/:barcode", catalogHandler.GetProductByBarcode)
	protected.Get("/products/:id", catalogHandler.GetProduct)
	protected.Post("/products", middleware.RequirePrivilege("product:create"), catalogHandler.CreateProduct)
	protected.Put("/products/:id", middleware.RequirePrivilege("product:update"), catalogHandler.UpdateProduct)
	protected.Delete("/products/:id", middleware.RequirePrivilege("product:delete"), catalogHandler.DeleteProduct)

	// Store Routes
	protected.Get("/stores", catalogHandler.GetStores)
	protected.Get("/stores/:id", catalogHandler.GetStore)
	protected.Post("/stores", middleware.RequirePrivilege("store:create"), catalogHandler.CreateStore)
	protected.Put("/stores/:id", middleware.RequirePrivilege("store:update"), catalogHandler.UpdateStore)

	// Stock Ledger Routes
	protected.Get("/stock", middleware.RequirePrivilege("stock:view"), stockHandler.GetStockLevels)
	protected.Get("/stock/:store_id/:product_id", middleware.RequirePrivilege("stock:view"), stockHandler.GetStockLevel)
	protected.Get("/stock/:store_id/:product_id/movements", middleware.RequirePrivilege("stock:view"), stockHandler.GetMovements)
	protected.Get("/stock/:store_id/:product_id/verify", middleware.RequirePrivilege("stock:view"), stockHandler.VerifyReplay)
	protected.Post("/stock/movements", middleware.RequirePrivilege("stock:mutate"), stockHandler.ApplyMovement)
	protected.Post("/stock/transfers", middleware.RequirePrivilege("stock:mutate"), stockHandler.Transfer)
	protected.Post("/stock/recompute", middleware.RequirePrivilege("stock:recompute"), stockHandler.Recompute)

	// User Management Routes
	protected.Get("/users", userHandler.GetUsers)
	protected.Get("/users/:id", userHandler.GetUser)
	protected.Post("/users", middleware.RequirePrivilege("user:create"), userHandler.CreateUser)
	protected.Put("/users/:id", middleware.RequirePrivilege("user:update"), userHandler.UpdateUser)
	protected.Delete("/users/:id", middleware.RequirePrivilege("user:delete"), userHandler.DeleteUser)
	protected.Put("/users/:id/privileges", middleware.RequirePrivilege("user:update_privilege"), userHandler.UpdateUserPrivileges)

	// Role Routes
	protected.Get("/roles", roleHandler.GetRoles)

	// Privileges Route (list all available privileges)
	protected.Get("/privileges", func(c *fiber.Ctx) error {
		privileges, err := privilegeRepo.FindAll()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch privileges"})
		}
		return c.JSON(privileges)
	})

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// seedDefaults creates default privileges, roles, the admin user, and the
// main store if they don't exist
func seedDefaults(db *gorm.DB) {
	privilegeRepo := repository.NewPrivilegeRepo(db)
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	storeRepo := repository.NewStoreRepo(db)

	// 1. Seed privileges first
	if err := privilegeRepo.SeedDefaults(); err != nil {
		log.Printf("Warning: Failed to seed privileges: %v", err)
	}

	// 2. Seed roles
	if err := roleRepo.SeedDefaults(); err != nil {
		log.Printf("Warning: Failed to seed roles: %v", err)
	}

	// 3. Assign privileges to roles
	allPrivileges, _ := privilegeRepo.FindAll()

	// MASTER_ADMIN gets ALL privileges
	masterRole, err := roleRepo.FindByCode(model.RoleMasterAdmin)
	if err == nil && len(masterRole.Privileges) == 0 {
		db.Model(&masterRole).Association("Privileges").Replace(allPrivileges)
		log.Println("MASTER_ADMIN role assigned all privileges")
	}

	// ADMIN gets limited privileges (exclude user management and cost repair)
	adminRole, err := roleRepo.FindByCode(model.RoleAdmin)
	if err == nil && len(adminRole.Privileges) == 0 {
		adminPrivileges := []model.Privilege{}
		for _, p := range allPrivileges {
			switch p.Code {
			case "user:create", "user:update", "user:delete", "user:update_privilege", "stock:recompute":
				continue
			}
			adminPrivileges = append(adminPrivileges, p)
		}
		db.Model(&adminRole).Association("Privileges").Replace(adminPrivileges)
		log.Println("ADMIN role assigned limited privileges")
	}

	// STORE_MANAGER runs one store: catalog, stock, and dashboard access
	managerRole, err := roleRepo.FindByCode(model.RoleStoreManager)
	if err == nil && len(managerRole.Privileges) == 0 {
		managerPrivileges := []model.Privilege{}
		for _, p := range allPrivileges {
			switch p.Code {
			case "product:view", "product:create", "product:update",
				"store:view", "stock:view", "stock:mutate", "dashboard:view":
				managerPrivileges = append(managerPrivileges, p)
			}
		}
		db.Model(&managerRole).Association("Privileges").Replace(managerPrivileges)
		log.Println("STORE_MANAGER role assigned store operation privileges")
	}

	// CASHIER records movements at the register and reads stock
	cashierRole, err := roleRepo.FindByCode(model.RoleCashier)
	if err == nil && len(cashierRole.Privileges) == 0 {
		cashierPrivileges := []model.Privilege{}
		for _, p := range allPrivileges {
			switch p.Code {
			case "product:view", "stock:view", "stock:mutate":
				cashierPrivileges = append(cashierPrivileges, p)
			}
		}
		db.Model(&cashierRole).Association("Privileges").Replace(cashierPrivileges)
		log.Println("CASHIER role assigned register privileges")
	}

	// 4. Create default admin user with MASTER_ADMIN role
	if _, err := userRepo.FindByEmail("admin@example.com"); err != nil {
		masterRole, _ := roleRepo.FindByCode(model.RoleMasterAdmin)

		admin := &model.User{
			Email:      "admin@example.com",
			FullName:   "Master Administrator",
			RoleID:     &masterRole.ID,
			IsActive:   true,
			Privileges: masterRole.Privileges,
		}
		admin.CreatedBy = "system"
		admin.UpdatedBy = "system"

		if err := admin.SetPassword("admin123"); err != nil {
			log.Printf("Warning: Failed to hash admin password: %v", err)
			return
		}

		if err := userRepo.Create(admin); err != nil {
			log.Printf("Warning: Failed to create admin user: %v", err)
		} else {
			log.Println("Admin user created: admin@example.com / admin123 (MASTER_ADMIN)")
		}
	}

	// 5. Create the default store
	if _, err := storeRepo.FindByCode("MAIN"); err != nil {
		mainStore := &model.Store{
			Code:     "MAIN",
			Name:     "Main Store",
			IsActive: true,
		}
		mainStore.CreatedBy = "system"
		mainStore.UpdatedBy = "system"

		if err := storeRepo.Create(mainStore); err != nil {
			log.Printf("Warning: Failed to create default store: %v", err)
		} else {
			log.Println("Default store created: MAIN")
		}
	}
}
