package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicstack/clinic-scheduling/internal/api"
	"github.com/clinicstack/clinic-scheduling/internal/appointment"
	"github.com/clinicstack/clinic-scheduling/internal/billing"
	"github.com/clinicstack/clinic-scheduling/internal/config"
	"github.com/clinicstack/clinic-scheduling/internal/db"
	redisclient "github.com/clinicstack/clinic-scheduling/internal/redis"
	"github.com/clinicstack/clinic-scheduling/internal/schedule"
)

const version = "0.3.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s lead_time=%s horizon_days=%d",
		cfg.Env, cfg.HTTPPort, cfg.LeadTime, cfg.BookingHorizon)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	apptRepo := appointment.NewPgRepository(pgPool)
	schedRepo := schedule.NewPgRepository(pgPool)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	feed := redisclient.NewChangeFeed(rdb)

	availability := appointment.NewAvailabilityService(apptRepo, schedRepo)
	booking := appointment.NewBookingService(apptRepo, availability, locker, feed).
		WithLeadTime(cfg.LeadTime).
		WithHorizonDays(cfg.BookingHorizon)
	queue := appointment.NewQueueService(apptRepo, locker, billing.NewClient(cfg.BillingURL), feed)
	reassign := appointment.NewReassignService(apptRepo, schedRepo, availability, feed)
	report := appointment.NewReportService(apptRepo)
	schedules := schedule.NewService(schedRepo)

	router := api.NewRouter(api.RouterConfig{
		Services: &api.Services{
			Availability: availability,
			Booking:      booking,
			Queue:        queue,
			Reassign:     reassign,
			Report:       report,
			Schedules:    schedules,
		},
		Feed:    feed,
		PgPool:  pgPool,
		Redis:   rdb,
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE responses stay open
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Println("shutdown signal received")
	case err := <-serverErr:
		log.Fatalf("http server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	log.Println("api-server stopped")
}
