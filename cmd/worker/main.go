// The worker binary is a standing alternative to cron-over-HTTP for
// deployments without an external scheduler. It polls active sending
// accounts on an interval and sweeps stale approval sessions. Running
// it alongside cron triggers is safe; the send lease keeps runs from
// overlapping.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/approval"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/compliance"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/config"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/pkg/logger"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/store"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/worker"
)

func main() {
	log.Println("Starting outreach engine worker...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Redis unavailable (%v), send lease falls back to advisory locks", err)
			redisClient = nil
		}
	}
	pingCancel()

	stores := store.New(db)

	window := compliance.Window{
		StartHour:       cfg.Sending.WindowStartHour,
		StartMinute:     cfg.Sending.WindowStartMinute,
		EndHour:         cfg.Sending.WindowEndHour,
		EndMinute:       cfg.Sending.WindowEndMinute,
		ExcludeWeekends: cfg.Sending.ExcludeWeekends,
	}
	if cfg.Sending.UseUSHolidays {
		year := time.Now().Year()
		window.Holidays = append(compliance.USHolidays(year), compliance.USHolidays(year+1)...)
	}

	var adapters []worker.Adapter
	if email, err := worker.NewEmailAdapter(cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region); err != nil {
		log.Printf("Email adapter disabled: %v", err)
	} else {
		adapters = append(adapters, email)
	}
	if cfg.LinkedIn.BaseURL != "" && cfg.LinkedIn.APIKey != "" {
		adapters = append(adapters, worker.NewLinkedInAdapter(cfg.LinkedIn.BaseURL, cfg.LinkedIn.APIKey))
	}

	dispatcher := worker.NewDispatcher(stores, db, redisClient, adapters,
		cfg.Dispatcher.BatchSize,
		time.Duration(cfg.Dispatcher.SendTimeoutSeconds)*time.Second,
		time.Duration(cfg.Dispatcher.LeaseTTLSeconds)*time.Second)
	var drafter approval.ReplyDrafter
	if cfg.Approval.BedrockModelID != "" {
		if d, err := approval.NewBedrockDrafter(context.Background(), cfg.Approval.BedrockModelID, cfg.SES.Region); err != nil {
			log.Printf("Bedrock drafter disabled: %v", err)
		} else {
			drafter = d
		}
	}
	gate := approval.NewGate(stores, drafter, window, time.Duration(cfg.Approval.TTLHours)*time.Hour)
	gate.SetDefaultAssignee(cfg.Approval.DefaultAssignee)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Println("Shutting down...")
		cancel()
	}()

	interval := time.Duration(cfg.Dispatcher.PollIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Sweep approvals on a slower cadence than the send poll.
	expiryTicker := time.NewTicker(10 * time.Minute)
	defer expiryTicker.Stop()

	log.Printf("Polling every %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("Worker stopped")
			return
		case <-ticker.C:
			runDispatch(ctx, stores, dispatcher)
		case <-expiryTicker.C:
			if _, err := gate.ExpireStale(ctx); err != nil {
				log.Printf("[Worker] Approval sweep failed: %v", err)
			}
		}
	}
}

func runDispatch(ctx context.Context, stores *store.Stores, dispatcher *worker.Dispatcher) {
	accounts, err := stores.Campaigns.ActiveSendingAccounts(ctx)
	if err != nil {
		log.Printf("[Worker] Listing active accounts failed: %v", err)
		return
	}
	for _, account := range accounts {
		if ctx.Err() != nil {
			return
		}
		if _, err := dispatcher.RunOnce(ctx, account); err != nil {
			log.Printf("[Worker] Dispatch for account %s: %v", account, err)
		}
	}
}
