package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"haldor/internal/clock"
	"haldor/internal/config"
	"haldor/internal/database"
	"haldor/internal/handlers"
	"haldor/internal/middleware"
	"haldor/internal/monitoring"
	"haldor/internal/payment"
	"haldor/internal/repositories"
	"haldor/internal/services"
	"haldor/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const cartTTL = 30 * 24 * time.Hour

// application is the wired service: the HTTP app plus the resources main
// must start and release.
type application struct {
	fiber   *fiber.App
	mq      *rabbitmq.Client
	closers []func() error
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("error releasing resource")
		}
	}
}

// newApplication opens every backing store named by cfg and registers all routes.
func newApplication(cfg *config.Config) (*application, error) {
	a := &application{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
	}

	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			return nil, err
		}
		a.mq = mq
		a.closers = append(a.closers, mq.Close)
		publisher = mq
	} else {
		log.Warn().Msg("RABBITMQ_URL not set, order events are not published")
	}

	categoryRepo := repositories.NewGORMCategoryRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	if cfg.SeedData {
		if err := database.SeedCatalog(context.Background(), categoryRepo, productRepo, cfg.Currency); err != nil {
			return nil, err
		}
		if err := database.SeedLocations(db); err != nil {
			return nil, err
		}
	}

	clk := clock.NewRealClock()
	processed := processedStore(cfg.GuardStore, db, rdb)

	productService := services.NewProductService(productRepo, categoryRepo)
	cartService := services.NewCartService(cartRepository(cfg.CartStore, db, rdb), productRepo)
	locationService := services.NewLocationService(
		repositories.NewGORMLocationRepository(db),
		repositories.NewGORMAddressRepository(db),
	)
	orderService := services.NewOrderService(repositories.NewGORMOrderRepository(db), processed, cartService, publisher, clk)
	authService := services.NewAuthService(repositories.NewGORMUserRepository(db), cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	simulator := payment.NewSimulator(payment.WithClock(clk), payment.WithDelay(cfg.PaymentDelay))
	checkoutService := services.NewCheckoutService(cartService, orderService, locationService, simulator, processed, clk, services.CheckoutConfig{
		Secret:           cfg.JWTSecret,
		DraftTTL:         cfg.CheckoutDraftTTL,
		ShippingStandard: cfg.ShippingStandard,
		ShippingExpress:  cfg.ShippingExpress,
		Currency:         cfg.Currency,
	})

	app := fiber.New(fiber.Config{AppName: "haldor"})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + middleware.CartIDHeader,
	}))
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(monitoring.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status": "healthy",
			"time":   clk.Now().Format(time.RFC3339),
		}
		if a.mq != nil {
			status["rabbitmq"] = "connected"
		}
		return c.JSON(status)
	})
	monitoring.RegisterRoutes(app)

	guards := handlers.Guards{
		Required: middleware.AuthRequired(authService),
		Optional: middleware.OptionalAuth(authService),
	}
	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService, cartService).RegisterRoutes(apiV1, guards)
	handlers.NewProductHandler(productService).RegisterRoutes(apiV1, guards)
	handlers.NewCartHandler(cartService).RegisterRoutes(apiV1, guards)
	handlers.NewCheckoutHandler(checkoutService).RegisterRoutes(apiV1, guards)
	handlers.NewOrderHandler(orderService).RegisterRoutes(apiV1, guards)
	handlers.NewLocationHandler(locationService).RegisterRoutes(apiV1, guards)

	a.fiber = app
	ok = true
	return a, nil
}

func cartRepository(store string, db *gorm.DB, rdb *redis.Client) repositories.CartRepository {
	switch strings.ToLower(store) {
	case "memory":
		return repositories.NewMockCartRepository()
	case "redis":
		return repositories.NewRedisCartRepository(rdb, cartTTL)
	}
	return repositories.NewGORMCartRepository(db)
}

func processedStore(store string, db *gorm.DB, rdb *redis.Client) repositories.ProcessedStore {
	switch strings.ToLower(store) {
	case "memory":
		return repositories.NewMockProcessedStore()
	case "redis":
		return repositories.NewRedisProcessedStore(rdb, 0)
	}
	return repositories.NewGORMProcessedStore(db)
}
