package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Agastya221/society-gate-backend/internal/domain"
	"github.com/Agastya221/society-gate-backend/internal/http/handlers"
	hmw "github.com/Agastya221/society-gate-backend/internal/http/middleware"
	"github.com/Agastya221/society-gate-backend/internal/platform/idempotency"
	"github.com/Agastya221/society-gate-backend/internal/platform/notify"
	"github.com/Agastya221/society-gate-backend/internal/platform/token"
	"github.com/Agastya221/society-gate-backend/internal/repo/postgres"
	"github.com/Agastya221/society-gate-backend/internal/service"
	"github.com/Agastya221/society-gate-backend/pkg/clock"
	"github.com/Agastya221/society-gate-backend/pkg/config"
	"github.com/Agastya221/society-gate-backend/pkg/database"
	"github.com/Agastya221/society-gate-backend/pkg/events"
	"github.com/Agastya221/society-gate-backend/pkg/logger"
	mw "github.com/Agastya221/society-gate-backend/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", "error", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	idemStore, err := idempotency.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer idemStore.Close()

	// Repositories
	principalRepo := postgres.NewPrincipalRepo(pool)
	entryRepo := postgres.NewEntryRepo(pool)
	requestRepo := postgres.NewEntryRequestRepo(pool)
	preApprovalRepo := postgres.NewPreApprovalRepo(pool)
	gatePassRepo := postgres.NewGatePassRepo(pool)
	rulesRepo := postgres.NewRulesRepo(pool)
	bookingRepo := postgres.NewBookingRepo(pool)

	// Services
	clk := clock.Real()
	notifier := notify.NewBusNotifier(eventBus)
	codec := token.NewCodec(cfg.Auth.CredentialSecret)
	resolver := service.NewAutoApprovalResolver(rulesRepo, clk)
	entryService := service.NewEntryService(entryRepo, requestRepo, principalRepo, resolver, eventBus, notifier, clk, cfg.Access)
	credentialService := service.NewCredentialService(preApprovalRepo, gatePassRepo, codec, eventBus, notifier, clk)
	bookingService := service.NewBookingService(bookingRepo, eventBus, clk, cfg.Access)
	rulesService := service.NewRulesService(rulesRepo, clk)
	sweeper := service.NewSweeper(requestRepo, preApprovalRepo, gatePassRepo, eventBus, notifier, clk, cfg.Access)

	h := handlers.New(entryService, credentialService, bookingService, rulesService)

	// Router
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("society-gate"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	secret := cfg.Auth.JWTSecret
	r.Route("/guard", func(r chi.Router) {
		r.Use(hmw.RequirePrincipal(secret, domain.RoleGuard))
		r.Use(mw.Idempotency(idemStore))
		r.Post("/arrivals", h.ReportArrival)
		r.Post("/requests", h.CreateEntryRequest)
		r.Post("/entries", h.CreateAdhocEntry)
		r.Post("/entries/{id}/checkout", h.CheckoutEntry)
		r.Post("/scan/preapproval", h.ScanPreApproval)
		r.Post("/scan/gatepass", h.ScanGatePass)
		r.Get("/entries", h.ListUnitEntries)
	})

	r.Route("/resident", func(r chi.Router) {
		r.Use(hmw.RequirePrincipal(secret, domain.RoleResident))
		r.Get("/requests", h.ListPendingRequests)
		r.Post("/requests/{id}/approve", h.ApproveEntryRequest)
		r.Post("/requests/{id}/reject", h.RejectEntryRequest)
		r.Post("/entries/{id}/approve", h.ApproveEntry)
		r.Post("/entries/{id}/reject", h.RejectEntry)
		r.Get("/entries", h.ListUnitEntries)

		r.Post("/preapprovals", h.IssuePreApproval)
		r.Get("/preapprovals", h.ListPreApprovals)
		r.Delete("/preapprovals/{id}", h.CancelPreApproval)
		r.Post("/gatepasses", h.RequestGatePass)
		r.Delete("/gatepasses/{id}", h.CancelGatePass)

		r.Post("/rules", h.CreateRule)
		r.Get("/rules", h.ListRules)
		r.Delete("/rules/{id}", h.DeactivateRule)
		r.Post("/expected-deliveries", h.ExpectDelivery)

		r.Post("/bookings", h.ProposeBooking)
		r.Delete("/bookings/{id}", h.CancelBooking)
		r.Get("/bookings", h.ListDayBookings)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(hmw.RequirePrincipal(secret, domain.RoleAdmin))
		r.Get("/gatepasses", h.ListPendingGatePasses)
		r.Post("/gatepasses/{id}/approve", h.ApproveGatePass)
		r.Post("/gatepasses/{id}/reject", h.RejectGatePass)
		r.Post("/bookings/{id}/confirm", h.ConfirmBooking)
		r.Post("/bookings/{id}/complete", h.CompleteBooking)
		r.Get("/bookings", h.ListDayBookings)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Service exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
