//go:build ignore
// +build ignore

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Seeds one active demo campaign with A/B variants and a small prospect
// list, so a fresh database has something to schedule and dispatch.
//
// Usage:
//   DATABASE_URL=postgres://... go run scripts/seed_demo_campaign.go

var (
	databaseURL    = getEnvOrDefault("DATABASE_URL", "")
	sendingAccount = getEnvOrDefault("SENDING_ACCOUNT", "demo@example.com")
	prospectCount  = getEnvIntOrDefault("PROSPECT_COUNT", 10)
)

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func main() {
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	campaignID := uuid.New()

	_, err = db.ExecContext(ctx, `
		INSERT INTO campaigns (id, workspace_id, name, channel, sending_account, from_identity,
		                       subject_a, body_a, subject_b, body_b, daily_cap, status, created_at)
		VALUES ($1, $2, $3, 'email', $4, $4, $5, $6, $7, $8, 40, 'active', NOW())
	`, campaignID, uuid.New(), "Demo Outreach "+time.Now().Format("2006-01-02"),
		sendingAccount,
		"Quick question, {first_name}",
		"Hi {first_name},\n\nNoticed {company_name} is growing. Worth a quick chat?\n\nBest",
		"{first_name}, an idea for {company_name}",
		"Hi {first_name},\n\nI had an idea that might help {company_name}. Open to hearing it?\n\nBest",
	)
	if err != nil {
		log.Fatalf("Failed to insert campaign: %v", err)
	}
	log.Printf("Created campaign %s (account %s)", campaignID, sendingAccount)

	firstNames := []string{"Ada", "Grace", "Alan", "Edsger", "Barbara", "Donald", "Margaret", "Dennis", "Ken", "Leslie"}
	companies := []string{"Acme Corp", "Globex", "Initech", "Umbrella", "Stark Industries"}

	inserted := 0
	for i := 0; i < prospectCount; i++ {
		first := firstNames[i%len(firstNames)]
		company := companies[i%len(companies)]
		email := fmt.Sprintf("%s.%d@example.com", first, i)

		_, err := db.ExecContext(ctx, `
			INSERT INTO prospects (id, campaign_id, first_name, last_name, company_name, title,
			                       email, linkedin_urn, status, created_at, last_status_at)
			VALUES ($1, $2, $3, 'Demo', $4, 'VP Engineering', $5, '', 'pending', NOW(), NOW())
		`, uuid.New(), campaignID, first, company, email)
		if err != nil {
			log.Printf("Failed to insert prospect %s: %v", email, err)
			continue
		}
		inserted++
	}

	log.Printf("Inserted %d prospects", inserted)
	log.Printf("Schedule with: curl -X POST http://localhost:8080/api/campaigns/%s/schedule", campaignID)
}
