// Command serial-listener answers a badge reader attached to a serial port.
// Each line the reader sends is a credential; the answer is "GRANT,<name>"
// or "DENY". With --enroll it captures one card and registers it instead.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"go.bug.st/serial"

	"github.com/rfidaccess/access-control-backend/internal/access"
	"github.com/rfidaccess/access-control-backend/internal/config"
	"github.com/rfidaccess/access-control-backend/internal/database"
	"github.com/rfidaccess/access-control-backend/internal/database/qrstore"
	"github.com/rfidaccess/access-control-backend/internal/models"
	"github.com/rfidaccess/access-control-backend/internal/notify"
	"github.com/rfidaccess/access-control-backend/internal/services"
	"github.com/rfidaccess/access-control-backend/internal/transport/serialline"
)

type options struct {
	port          string
	baud          int
	backend       string
	listPorts     bool
	enroll        bool
	enrollTimeout time.Duration
	name          string
	firstName     string
	lastName      string
	department    string
	expiry        string
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	if err := run(logger); err != nil {
		logger.WithError(err).Error("serial-listener failed")
		os.Exit(1)
	}
}

func run(logger *logrus.Logger) error {
	cfg, err := config.LoadForDevice()
	if err != nil {
		return err
	}
	if level, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	var opts options
	flagSet := pflag.NewFlagSet("serial-listener", pflag.ContinueOnError)
	flagSet.StringVar(&opts.port, "port", cfg.Serial.Port, "serial device of the reader")
	flagSet.IntVar(&opts.baud, "baud", cfg.Serial.BaudRate, "baud rate")
	flagSet.StringVar(&opts.backend, "backend", cfg.Access.Backend, "access store: hr or qr")
	flagSet.BoolVar(&opts.listPorts, "list-ports", false, "print the available serial ports and exit")
	flagSet.BoolVar(&opts.enroll, "enroll", false, "capture the next card and register it")
	flagSet.DurationVar(&opts.enrollTimeout, "enroll-timeout", time.Minute, "how long to wait for a card in enroll mode")
	flagSet.StringVar(&opts.name, "name", "", "holder name (qr backend)")
	flagSet.StringVar(&opts.department, "department", "", "holder department (qr backend)")
	flagSet.StringVar(&opts.expiry, "expiry", "", "card expiry YYYY-MM-DD (qr backend)")
	flagSet.StringVar(&opts.firstName, "first-name", "", "employee first name (hr backend)")
	flagSet.StringVar(&opts.lastName, "last-name", "", "employee last name (hr backend)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if opts.listPorts {
		ports, err := serial.GetPortsList()
		if err != nil {
			return fmt.Errorf("failed to list serial ports: %w", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	}

	cfg.Access.Backend = strings.ToLower(opts.backend)
	if err := cfg.ValidateStore(); err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	port, err := serial.Open(opts.port, &serial.Mode{BaudRate: opts.baud})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", opts.port, err)
	}
	logger.WithFields(logrus.Fields{
		"port":    opts.port,
		"baud":    opts.baud,
		"backend": cfg.Access.Backend,
	}).Info("Serial reader connected")

	accessService := services.NewAccessService(store.backend, notify.Discard{}, cfg.Access, logger)
	listener := serialline.NewListener(port, accessService, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	if opts.enroll {
		err := enroll(ctx, listener, store, opts, logger)
		port.Close()
		<-done
		return err
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down serial listener...")
		// closing the port unblocks the pending read
		port.Close()
		<-done
		return nil
	case err := <-done:
		port.Close()
		return err
	}
}

// accessStore is whichever backing the listener runs on
type accessStore struct {
	backend access.Backend
	closer  io.Closer
	qr      *qrstore.Store
	hr      *database.Handle
}

func (s *accessStore) Close() error {
	return s.closer.Close()
}

func openStore(cfg *config.Config, logger *logrus.Logger) (*accessStore, error) {
	if cfg.Access.Backend == config.BackendQR {
		store, err := qrstore.Open(cfg.QRDatabase, logger)
		if err != nil {
			return nil, err
		}
		return &accessStore{backend: store, closer: store, qr: store}, nil
	}

	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return &accessStore{backend: database.NewHRAccessBackend(db), closer: db, hr: db}, nil
}

func enroll(ctx context.Context, listener *serialline.Listener, store *accessStore, opts options, logger *logrus.Logger) error {
	fmt.Fprintf(os.Stderr, "Present the card to enroll (waiting %s)...\n", opts.enrollTimeout)

	captureCtx, cancel := context.WithTimeout(ctx, opts.enrollTimeout)
	defer cancel()
	credential, err := listener.CaptureNext(captureCtx)
	if err != nil {
		return fmt.Errorf("no card captured: %w", err)
	}

	if store.qr != nil {
		req := models.EnrollRequest{
			QRCode:     credential,
			Name:       opts.name,
			Department: opts.department,
			CardExpiry: opts.expiry,
		}
		badge, err := req.ToQREmployee()
		if err != nil {
			return err
		}
		if err := store.qr.Enroll(ctx, badge); err != nil {
			return err
		}
		logger.WithField("badge_id", badge.ID).Info("Badge enrolled")
		fmt.Printf("Enrolled %s as %s\n", credential, badge.Name)
		return nil
	}

	directory := services.NewDirectoryService(
		database.NewTeamRepository(store.hr),
		database.NewPositionRepository(store.hr),
		database.NewEmployeeRepository(store.hr),
		logger,
	)
	emp, err := directory.AddEmployee(ctx, &models.CreateEmployeeRequest{
		RFID:       credential,
		FirstName:  opts.firstName,
		LastName:   opts.lastName,
		CardExpiry: opts.expiry,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Enrolled %s as %s\n", emp.RFID, emp.FullName())
	return nil
}
