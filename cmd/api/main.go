package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/rmaffei/scheduling-api/config"
	bookingHandler "github.com/rmaffei/scheduling-api/internal/handler/booking"
	gridHandler "github.com/rmaffei/scheduling-api/internal/handler/grid"
	healthHandler "github.com/rmaffei/scheduling-api/internal/handler/health"
	workflowHandler "github.com/rmaffei/scheduling-api/internal/handler/workflow"
	"github.com/rmaffei/scheduling-api/internal/middleware"
	"github.com/rmaffei/scheduling-api/internal/repository/postgres"
	"github.com/rmaffei/scheduling-api/internal/router"
	bookingService "github.com/rmaffei/scheduling-api/internal/service/booking"
	gridService "github.com/rmaffei/scheduling-api/internal/service/grid"
	notificationService "github.com/rmaffei/scheduling-api/internal/service/notification"
	workflowService "github.com/rmaffei/scheduling-api/internal/service/workflow"
	"github.com/rmaffei/scheduling-api/pkg/auth"
	"github.com/rmaffei/scheduling-api/pkg/logger"
	"github.com/rmaffei/scheduling-api/pkg/metrics"
)

var version = "dev"

func main() {
	l := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		l.Fatal(err, "failed to load config")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		l.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("scheduling", prometheus.DefaultRegisterer)

	bookingRepo := postgres.NewBookingRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)
	attendanceRepo := postgres.NewAttendanceRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	bookingSvc := bookingService.NewService(bookingRepo, outboxRepo, m, l)
	gridSvc := gridService.NewService(
		templateRepo, bookingRepo, attendanceRepo, patientRepo,
		cfg.Scheduling.TemplateCacheTTL, m, l,
	)
	notifier := notificationService.NewService(cfg.Email, l)
	workflowSvc := workflowService.NewService(
		bookingSvc, gridSvc, attendanceRepo, patientRepo, notifier,
		cfg.Scheduling.SessionTTL, cfg.Scheduling.OverdueLimitDays, l,
	)

	authMiddleware := middleware.NewAuthMiddleware(auth.NewTokenVerifier(cfg.JWT.Secret))

	r := router.NewRouter(
		authMiddleware,
		healthHandler.NewHandler(db, version),
		gridHandler.NewHandler(gridSvc),
		bookingHandler.NewHandler(bookingSvc),
		workflowHandler.NewHandler(workflowSvc),
		router.Config{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			RequestTimeout:   cfg.Server.RequestTimeout,
			CORSConfig:       middleware.DefaultCORSConfig(),
			MetricsPrefix:    "scheduling_http",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		l.Info("starting server", "port", cfg.Server.Port, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		l.Fatal(err, "forced shutdown")
	}
	l.Info("server stopped")
}
