package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/config"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/database"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Prints every booking attempt that was charged without a persisted booking,
// with its payment audit trail, so an operator can refund or book by hand.
func main() {
	var (
		dbURLFlag string
		limit     int
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.IntVar(&limit, "limit", 100, "Maximum number of attempts to list")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	attempts := database.NewBookingAttemptRepository(db.Sqlx())
	audits := database.NewPaymentAuditRepository(db.Sqlx(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pending, err := attempts.GetAttemptsByStatus(ctx, models.AttemptReconciliationRequired, limit)
	if err != nil {
		log.Fatalf("failed to list attempts: %v", err)
	}

	if len(pending) == 0 {
		fmt.Println("No booking attempts need reconciliation.")
		return
	}

	fmt.Printf("%d booking attempt(s) need reconciliation:\n\n", len(pending))
	for _, a := range pending {
		fmt.Printf("Attempt %s (key %s)\n", a.ID, a.IdempotencyKey)
		fmt.Printf("  contact:   %s\n", a.Payload.ContactEmail)
		method := "-"
		if a.PaymentMethod != nil {
			method = string(*a.PaymentMethod)
		}
		fmt.Printf("  amount:    %d FCFA via %s\n", a.AmountToPay, method)
		fmt.Printf("  reference: %s\n", deref(a.PaymentReference))
		fmt.Printf("  reason:    %s\n", deref(a.ErrorMessage))
		fmt.Printf("  updated:   %s\n", a.UpdatedAt.Format(time.RFC3339))

		trail, err := audits.GetByAttemptID(ctx, a.ID)
		if err != nil {
			fmt.Printf("  audit trail unavailable: %v\n\n", err)
			continue
		}
		for _, entry := range trail {
			fmt.Printf("    %s  %-22s %s\n", entry.CreatedAt.Format(time.RFC3339), entry.EventType, deref(entry.ErrorMessage))
		}
		fmt.Println()
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
