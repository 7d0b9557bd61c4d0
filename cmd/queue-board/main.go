// queue-board is a terminal live-queue viewer for one clinic: it subscribes
// to the clinic's Redis change channel and re-renders today's queue on every
// appointment write.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/clinicstack/clinic-scheduling/internal/appointment"
	"github.com/clinicstack/clinic-scheduling/internal/config"
	"github.com/clinicstack/clinic-scheduling/internal/db"
	redisclient "github.com/clinicstack/clinic-scheduling/internal/redis"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("queue-board starting up")

	clinicID, err := uuid.Parse(os.Getenv("CLINIC_ID"))
	if err != nil {
		log.Fatal("CLINIC_ID is required and must be a valid UUID")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()

	repo := appointment.NewPgRepository(pgPool)
	feed := redisclient.NewChangeFeed(rdb)

	sub := feed.Subscribe(rootCtx, clinicID)
	defer sub.Close()

	render(rootCtx, repo, clinicID)

	ch := sub.Channel()
	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping queue-board")
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			ev, err := redisclient.Decode(msg.Payload)
			if err != nil {
				log.Printf("bad change event: %v", err)
				continue
			}
			log.Printf("event=%s appointment=%s status=%s", ev.Type, ev.AppointmentID, ev.Status)
			render(rootCtx, repo, clinicID)
		}
	}
}

func render(ctx context.Context, repo *appointment.PgRepository, clinicID uuid.UUID) {
	listCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	list, err := repo.ListForClinicDay(listCtx, clinicID, time.Now(), nil)
	if err != nil {
		log.Printf("list queue: %v", err)
		return
	}

	fmt.Printf("\n=== queue %s ===\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Printf("%-6s %-10s %-12s %s\n", "token", "slot", "status", "appointment")
	for _, a := range list {
		token := "-"
		if a.TokenNumber != nil {
			token = fmt.Sprintf("%d", *a.TokenNumber)
		}
		fmt.Printf("%-6s %-10s %-12s %s\n", token, a.TimeSlot, a.Status, a.ID)
	}
}
