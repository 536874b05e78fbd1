package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"subgate/internal/auth"
	authhttp "subgate/internal/auth/transport/http"
	"subgate/internal/config"
	"subgate/internal/metrics"
	paymentrepository "subgate/internal/payment/repository"
	paymentservice "subgate/internal/payment/service"
	paymenthttp "subgate/internal/payment/transport/http"
	promorepository "subgate/internal/promocode/repository"
	promoservice "subgate/internal/promocode/service"
	promohttp "subgate/internal/promocode/transport/http"
	tokenrepository "subgate/internal/token/repository"
	userrepository "subgate/internal/user/repository"
	userservice "subgate/internal/user/service"
	userhttp "subgate/internal/user/transport/http"
	"subgate/pkg/db"
	"subgate/pkg/middleware"
)

var server *http.Server

func main() {
	fmt.Println("subgate API starting...")
	cfg := config.Load()
	fmt.Println("Config loaded")

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("Schema migration failed: %v", err)
	}
	log.Println("Database ready")

	metrics.InitMetrics()

	// --- layer wiring ---
	userRepo := userrepository.NewPostgresUserRepository(database)
	userService := userservice.NewUserService(userRepo)
	userHandler := userhttp.NewHandler(userService)

	promoRepo := promorepository.NewPostgresPromoCodeRepository(database)
	promoService := promoservice.NewService(promoRepo, userRepo)
	promoHandler := promohttp.NewHandler(promoService)

	paymentRepo := paymentrepository.NewPostgresPaymentRepository(database)
	paymentService := paymentservice.NewService(paymentRepo)
	paymentHandler := paymenthttp.NewHandler(paymentService)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret)
	tokenRepo := tokenrepository.NewRefreshTokenRepository(database)
	authHandler := authhttp.NewHandler(jwtManager, tokenRepo, cfg.AdminUser, cfg.AdminPasswordHash)

	// --- router ---
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.NewRateLimiter(100, 1*time.Minute).Middleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.ValidateRequest)

	r.Post("/auth/login", authHandler.Login)
	r.Post("/auth/refresh", authHandler.Refresh)

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.JWTAuth(cfg.JWTSecret))

		pr.Post("/api/users", userHandler.Register)
		pr.Get("/api/users/{externalID}/subscription", userHandler.GetSubscription)
		pr.Get("/api/plans", plansHandler(cfg))

		pr.Post("/api/promo/validate", promoHandler.Validate)
		pr.Post("/api/promo/redeem", promoHandler.Redeem)

		pr.Post("/api/payments", paymentHandler.Apply)

		pr.Post("/api/admin/promo", promoHandler.Create)
		pr.Get("/api/admin/promo", promoHandler.List)
		pr.Get("/api/admin/stats", userHandler.Stats)
	})

	r.With(middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPassword)).
		Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	server = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	log.Printf("Server running on %s", cfg.ListenAddr)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		log.Println("Shutdown signal received, starting graceful shutdown")
		shutdownServer()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// plansHandler exposes the configured subscription plans so the bot can build
// its price menu from one source of truth.
func plansHandler(cfg *config.Config) http.HandlerFunc {
	type plan struct {
		Days  int `json:"days"`
		Price int `json:"price"`
		Stars int `json:"stars"`
	}

	var plans []plan
	for i, days := range cfg.PlanDays {
		p := plan{Days: days}
		if i < len(cfg.PlanPrices) {
			p.Price = cfg.PlanPrices[i]
		}
		if i < len(cfg.PlanStars) {
			p.Stars = cfg.PlanStars[i]
		}
		plans = append(plans, p)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(plans)
	}
}

func shutdownServer() {
	log.Println("Starting server shutdown process")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped")
}
