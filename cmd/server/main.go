package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/api"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/approval"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/compliance"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/config"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/pkg/logger"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/store"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/worker"
)

func main() {
	log.Println("Starting outreach engine server...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
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
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
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
		} else {
			log.Println("Connected to Redis")
		}
	}

	stores := store.New(db)
	window := sendWindow(cfg.Sending)

	adapters := buildAdapters(cfg)
	dispatcher := worker.NewDispatcher(stores, db, redisClient, adapters,
		cfg.Dispatcher.BatchSize,
		time.Duration(cfg.Dispatcher.SendTimeoutSeconds)*time.Second,
		time.Duration(cfg.Dispatcher.LeaseTTLSeconds)*time.Second)

	gate := approval.NewGate(stores, buildDrafter(cfg), window, time.Duration(cfg.Approval.TTLHours)*time.Hour)
	gate.SetDefaultAssignee(cfg.Approval.DefaultAssignee)
	ingestor := worker.NewIngestor(stores, gate, nil)
	scheduler := worker.NewScheduler(stores)

	handlers := api.NewHandlers(db, stores, scheduler, dispatcher, ingestor, gate, window)
	server := api.NewServer(cfg.Server, handlers, cfg.Cron.Secret)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Printf("Listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// sendWindow builds the compliance window from config, loading US
// holidays for this year and next so a late-December schedule still
// sees January holidays.
func sendWindow(cfg config.SendingConfig) compliance.Window {
	w := compliance.Window{
		StartHour:       cfg.WindowStartHour,
		StartMinute:     cfg.WindowStartMinute,
		EndHour:         cfg.WindowEndHour,
		EndMinute:       cfg.WindowEndMinute,
		ExcludeWeekends: cfg.ExcludeWeekends,
	}
	if cfg.UseUSHolidays {
		year := time.Now().Year()
		w.Holidays = append(compliance.USHolidays(year), compliance.USHolidays(year+1)...)
	}
	return w
}

// buildDrafter returns the Bedrock drafter when a model is configured,
// nil otherwise (the gate falls back to its stock drafter).
func buildDrafter(cfg *config.Config) approval.ReplyDrafter {
	if cfg.Approval.BedrockModelID == "" {
		return nil
	}
	drafter, err := approval.NewBedrockDrafter(context.Background(), cfg.Approval.BedrockModelID, cfg.SES.Region)
	if err != nil {
		log.Printf("Bedrock drafter disabled: %v", err)
		return nil
	}
	return drafter
}

func buildAdapters(cfg *config.Config) []worker.Adapter {
	var adapters []worker.Adapter

	email, err := worker.NewEmailAdapter(cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region)
	if err != nil {
		log.Printf("Email adapter disabled: %v", err)
	} else {
		adapters = append(adapters, email)
	}

	if cfg.LinkedIn.BaseURL != "" && cfg.LinkedIn.APIKey != "" {
		adapters = append(adapters, worker.NewLinkedInAdapter(cfg.LinkedIn.BaseURL, cfg.LinkedIn.APIKey))
	} else {
		log.Println("LinkedIn adapter disabled: no provider configured")
	}

	return adapters
}
