package main // Entry point package

import (
    "log" // Logging library

    "github.com/joho/godotenv"    // Loads .env files into the environment
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/iliyamo/table-slot-booking/internal/booking"    // Admission core
    "github.com/iliyamo/table-slot-booking/internal/config"     // Internal config loader
    "github.com/iliyamo/table-slot-booking/internal/database"   // MySQL connector
    "github.com/iliyamo/table-slot-booking/internal/handler"    // HTTP handlers
    "github.com/iliyamo/table-slot-booking/internal/middleware" // Rate limiting and caching
    "github.com/iliyamo/table-slot-booking/internal/queue"      // Booking event broker
    "github.com/iliyamo/table-slot-booking/internal/repository" // Data access layer
    "github.com/iliyamo/table-slot-booking/internal/router"     // Internal router setup
    "github.com/iliyamo/table-slot-booking/internal/webhook"    // Participant export delivery
)

func main() {
    // Load .env when present; real deployments set variables directly.
    _ = godotenv.Load()

    cfg := config.Load() // Load environment config

    // Connect to MySQL and fail fast when the database is unreachable.
    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database connection failed: %v", err)
    }
    defer db.Close()

    // Repositories share the single connection pool.
    slotRepo := repository.NewSlotRepo(db)
    bookingRepo := repository.NewBookingRepo(db)
    waitlistRepo := repository.NewWaitlistRepo(db)
    userRepo := repository.NewUserRepo(db)
    tokenRepo := repository.NewTokenRepo(db)

    // The booking core owns every capacity-moving operation.  Events go
    // to RabbitMQ; the consumer below writes them to the booking log.
    publisher := queue.NewPublisher()
    core := booking.NewService(booking.NewTxRunner(db), slotRepo, bookingRepo, waitlistRepo, publisher)

    // Start the booking event consumer in the background.  It reconnects
    // on broker failures and never takes the API down with it.
    go func() {
        if err := queue.StartBookingConsumer(); err != nil {
            log.Printf("booking consumer stopped: %v", err)
        }
    }()

    e := echo.New() // Create Echo instance

    // Redis-backed rate limiting and response caching.  A nil client
    // disables both and the API continues to serve without them.
    if rdb := config.NewRedisClient(); rdb != nil {
        e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
        e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
    } else {
        log.Println("redis unavailable; rate limiting and caching disabled")
    }

    // Handlers
    authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
    publicHandler := handler.NewPublicHandler(slotRepo)
    profileHandler := handler.NewProfileHandler(userRepo)
    customerHandler := handler.NewCustomerHandler(core, bookingRepo, waitlistRepo)
    ownerHandler := handler.NewOwnerHandler(core, slotRepo, bookingRepo, waitlistRepo, userRepo, webhook.NewSender())

    // Routes
    router.RegisterRoutes(e) // health check
    router.RegisterAuth(e, authHandler, cfg.JWTSecret)
    router.RegisterPublic(e, publicHandler)
    router.RegisterProfile(e, profileHandler, cfg.JWTSecret)
    router.RegisterCustomer(e, customerHandler, cfg.JWTSecret)
    router.RegisterOwner(e, ownerHandler, cfg.JWTSecret)

    addr := ":" + cfg.Port                                // Address string with port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

    if err := e.Start(addr); err != nil { // Start HTTP server
        log.Fatal(err) // Log and exit if server fails
    }
}
