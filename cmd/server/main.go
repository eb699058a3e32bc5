package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jackc/pgx/v5/stdlib"

	"marketplace-api/internal/api"
	"marketplace-api/internal/events"
	"marketplace-api/internal/oauth"
	"marketplace-api/internal/repository"
	"marketplace-api/internal/s3"
	"marketplace-api/internal/service"
	"marketplace-api/internal/tracing"
	_ "marketplace-api/migrations"
)

func main() {
	if err := godotenv.Load(".env.dev"); err != nil {
		fmt.Println("No .env.dev file found, reading from environment variables")
	}

	api.SetupGlobalHandler("marketplace-api")

	shutdownTracer, err := tracing.InitTracerProvider("marketplace-api")
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Error("shutting down tracer provider", slog.String("error", err.Error()))
		}
	}()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		handleMigrations()
		return
	}

	db := connectDB()
	defer db.Close()

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}
	eventPublisher, err := events.NewNatsPublisher(natsURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	slog.Info("Connected to NATS", "url", natsURL)

	userRepo := repository.NewPostgresUserRepository(db)
	sessionRepo := repository.NewPostgresSessionRepository(db)
	bookingRepo := repository.NewPostgresBookingRepository(db)
	tokenRepo := repository.NewPostgresTokenRepository(db)

	if purged, err := tokenRepo.DeleteExpired(context.Background()); err != nil {
		slog.Error("purging expired refresh tokens", slog.String("error", err.Error()))
	} else if purged > 0 {
		slog.Info("purged expired refresh tokens", "count", purged)
	}

	authService := service.NewAuthService(userRepo, tokenRepo)
	sessionService := service.NewSessionService(sessionRepo, eventPublisher)
	bookingService := service.NewBookingService(bookingRepo, eventPublisher)

	var presigner *s3.AvatarPresigner
	if os.Getenv("S3_ENDPOINT") != "" {
		presigner, err = s3.NewAvatarPresigner(context.Background())
		if err != nil {
			log.Fatalf("Failed to initialize S3 presigner: %v", err)
		}
		slog.Info("S3 presigner initialized")
	}

	authHandler := api.NewAuthHandler(authService, oauth.Providers())
	sessionHandler := api.NewSessionHandler(sessionService)
	bookingHandler := api.NewBookingHandler(bookingService)
	userHandler := api.NewUserHandler(authService, presigner)

	app := fiber.New()
	app.Use(otelfiber.Middleware())
	app.Use(api.PrometheusMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "marketplace-api"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/v1")

	authRoutes := v1.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/refresh", authHandler.Refresh)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/oauth/complete", authHandler.OAuthComplete)
	authRoutes.Get("/oauth/:provider", authHandler.OAuthStart)

	if os.Getenv("DEBUG") == "true" {
		slog.Warn("DEBUG is on: mock login endpoint enabled")
		authRoutes.Post("/mock-login", authHandler.MockLogin)
	}

	userRoutes := v1.Group("/users")
	userRoutes.Use(api.AuthMiddleware())
	userRoutes.Get("/me", userHandler.GetMe)
	userRoutes.Put("/me", userHandler.UpdateMe)
	userRoutes.Post("/me/avatar/upload-url", userHandler.GetAvatarUploadURL)

	// session reads are open to anonymous callers; my_sessions must be
	// registered before the :id route so it is not swallowed by it
	sessionsRoutes := v1.Group("/sessions")
	sessionsRoutes.Get("/", api.OptionalAuthMiddleware(), sessionHandler.ListSessions)
	sessionsRoutes.Get("/my_sessions", api.AuthMiddleware(), sessionHandler.ListMySessions)
	sessionsRoutes.Get("/:id", api.OptionalAuthMiddleware(), sessionHandler.GetSession)
	sessionsRoutes.Post("/", api.AuthMiddleware(), sessionHandler.CreateSession)
	sessionsRoutes.Put("/:id", api.AuthMiddleware(), sessionHandler.UpdateSession)
	sessionsRoutes.Delete("/:id", api.AuthMiddleware(), sessionHandler.DeleteSession)

	bookingsRoutes := v1.Group("/bookings")
	bookingsRoutes.Use(api.AuthMiddleware())
	bookingsRoutes.Get("/", bookingHandler.ListBookings)
	bookingsRoutes.Post("/", bookingHandler.CreateBooking)
	bookingsRoutes.Get("/:id", bookingHandler.GetBooking)
	bookingsRoutes.Delete("/:id", bookingHandler.CancelBooking)

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8000"
	}

	slog.Info("Listening", "service", "marketplace-api", "port", port)
	log.Fatal(app.Listen(":" + port))
}

func connectDB() *sqlx.DB {
	db, err := sqlx.Connect("pgx", databaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	slog.Info("Connected to database")
	return db
}

func handleMigrations() {
	fmt.Println("Running database migrations...")

	db, err := sql.Open("pgx", databaseURL())
	if err != nil {
		log.Fatalf("failed to connect to database for migration: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("failed to set goose dialect: %v", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		log.Fatalf("goose: failed to run migrations: %v", err)
	}

	fmt.Println("Migrations applied successfully!")
}

func databaseURL() string {
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbName := os.Getenv("DB_NAME")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser, dbPassword, dbHost, dbPort, dbName,
	)
}
