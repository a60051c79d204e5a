package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/bancoatlas/backoffice/internal/cache"
	"github.com/bancoatlas/backoffice/internal/database"
	"github.com/bancoatlas/backoffice/internal/handlers"
	mW "github.com/bancoatlas/backoffice/internal/middleware"
	"github.com/bancoatlas/backoffice/internal/services"
)

func main() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.ReadInConfig()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("mongo.host", "MONGO_HOST")
	viper.BindEnv("mongo.port", "MONGO_PORT")
	viper.BindEnv("mongo.user", "MONGO_USER")
	viper.BindEnv("mongo.password", "MONGO_PASSWORD")
	viper.BindEnv("mongo.database", "MONGO_DATABASE")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("settlement.bic", "SETTLEMENT_BIC")
	viper.BindEnv("settlement.currency", "SETTLEMENT_CURRENCY")

	// Stores
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	mongoDB := database.InitMongoDatabase()
	defer mongoDB.Client().Disconnect(context.Background())

	// Cache tiers and collaborators
	var distributed cache.Cache
	if redisClient != nil {
		distributed = cache.NewDistributed(redisClient)
	}
	tiered := cache.NewTiered(cache.NewLocal(), distributed)
	notifier := services.NewRedisNotifier(redisClient)
	settlement := services.NewISO20022Settlement()

	// Services
	directory := services.NewAccountDirectory(db, tiered)
	movementLog := services.NewMovementLog(services.NewMongoMovementStore(mongoDB), tiered)
	domiciliationService := services.NewDomiciliationService(db, directory, movementLog, tiered, notifier)
	transferService := services.NewTransferService(directory, movementLog, notifier, settlement)
	paymentService := services.NewPaymentService(directory, movementLog, notifier)
	authService := services.NewAuthService(directory)

	// Outbox drainer replays movements whose log append was lost to a crash
	drainCtx, stopDrain := context.WithCancel(context.Background())
	defer stopDrain()
	go services.NewOutboxDrainer(db, movementLog).Run(drainCtx)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	transferHandler := handlers.NewTransferHandler(transferService)
	domiciliationHandler := handlers.NewDomiciliationHandler(domiciliationService)
	movementHandler := handlers.NewMovementHandler(movementLog)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	// Router
	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/movements", movementHandler.GetMovements)
			r.Get("/movements/{movementId}", movementHandler.GetMovement)

			r.Post("/transfers", transferHandler.CreateTransfer)
			r.Post("/transfers/{movementId}/revoke", transferHandler.RevokeTransfer)

			r.Post("/domiciliations", domiciliationHandler.CreateDomiciliation)
			r.Post("/domiciliations/{mandateId}/deactivate", domiciliationHandler.DeactivateDomiciliation)
			r.Post("/domiciliations/own/{mandateId}/deactivate", domiciliationHandler.DeactivateOwnDomiciliation)

			r.Post("/payments/payroll", paymentHandler.CreatePayrollIncome)
			r.Post("/payments/card", paymentHandler.CreateCardPayment)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	stopDrain()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
