package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/rfidaccess/access-control-backend/internal/config"
	"github.com/rfidaccess/access-control-backend/internal/database"
	"github.com/rfidaccess/access-control-backend/internal/services"
)

const dateLayout = "2006-01-02"

func main() {
	thisYear := time.Now().Year()

	var dbURLFlag, fromFlag, toFlag, holidaysPath string
	pflag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	pflag.StringVar(&fromFlag, "from", fmt.Sprintf("%d-01-01", thisYear), "first date to seed (YYYY-MM-DD)")
	pflag.StringVar(&toFlag, "to", fmt.Sprintf("%d-12-31", thisYear+1), "last date to seed (YYYY-MM-DD)")
	pflag.StringVar(&holidaysPath, "holidays", "", "YAML holiday table replacing the built-in one")
	pflag.Parse()

	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and --database-url was not provided")
	}

	from, err := time.Parse(dateLayout, fromFlag)
	if err != nil {
		log.Fatalf("invalid --from: %v", err)
	}
	to, err := time.Parse(dateLayout, toFlag)
	if err != nil {
		log.Fatalf("invalid --to: %v", err)
	}

	holidays := services.DefaultHolidays
	if holidaysPath != "" {
		f, err := os.Open(holidaysPath)
		if err != nil {
			log.Fatalf("failed to open holiday table: %v", err)
		}
		holidays, err = services.LoadHolidayTable(f)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	}, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	calendar := services.NewCalendarService(database.NewCalendarRepository(db), logger)
	ctx := context.Background()

	count, err := calendar.SeedRange(ctx, from, to, holidays)
	if err != nil {
		log.Fatalf("seeded %d days before failing: %v", count, err)
	}
	fmt.Printf("Seeded %d days from %s to %s.\n", count, fromFlag, toFlag)

	flagged, err := calendar.Holidays(ctx, from, to)
	if err != nil {
		log.Fatalf("failed to list holidays: %v", err)
	}
	fmt.Printf("Holidays in range: %d\n", len(flagged))
	for _, day := range flagged {
		fmt.Printf("  %s %-9s %s\n", day.FullDate.Format(dateLayout), day.WeekdayName, day.HolidayDescription)
	}
}
