package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/rfidaccess/access-control-backend/internal/config"
	"github.com/rfidaccess/access-control-backend/internal/database"
)

// tables in dependency order; calendar_days survives unless --calendar is set
var tables = []string{
	"events",
	"alerts",
	"employees",
	"positions",
	"teams",
}

func main() {
	var dbURLFlag string
	var withCalendar bool
	var confirm bool
	pflag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	pflag.BoolVar(&withCalendar, "calendar", false, "also truncate calendar_days")
	pflag.BoolVar(&confirm, "yes", false, "skip the confirmation prompt")
	pflag.Parse()

	// Try loading .env from current working directory (optional)
	// This avoids having to pass secrets on the command line.
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and --database-url was not provided")
	}

	if !confirm {
		fmt.Print("This deletes every employee, team, position, event and alert. Type 'yes' to continue: ")
		var answer string
		fmt.Scanln(&answer)
		if answer != "yes" {
			fmt.Println("Aborted.")
			return
		}
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	// Build minimal database config without loading full app config
	dbCfg := config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	}

	db, err := database.NewConnection(dbCfg, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	targets := tables
	if withCalendar {
		targets = append(targets, "calendar_days")
	}

	fmt.Println("Connected to database. Truncating tables...")

	ctx := context.Background()
	truncateSQL := "TRUNCATE TABLE " + strings.Join(targets, ", ") + " RESTART IDENTITY CASCADE"
	if _, err := db.ExecContext(ctx, truncateSQL); err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	fmt.Println("All data cleared successfully (tables truncated, identities reset).")

	fmt.Println("Post-clear row counts:")
	for _, t := range targets {
		var count int
		if err := db.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", t)); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}
