package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/verityux/verity/pkg/config"
	"github.com/verityux/verity/pkg/identity"
	"github.com/verityux/verity/pkg/storage/postgres"
)

const usage = `Usage: verity-admin [-log-level LEVEL] <command> [flags]

Commands:
  migrate                      Apply the database schema
  grant-super-admin -email E   Grant platform super admin to E
  revoke-super-admin -email E  Remove super admin from E
`

func main() {
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	logger := setupLogger(*logLevel)

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "migrate":
		err = runMigrate(ctx, cfg, logger)
	case "grant-super-admin", "revoke-super-admin":
		err = runClaims(ctx, cfg, logger, cmd, args)
	default:
		logger.Errorf("unknown command %q", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Fatalf("%s failed: %v", cmd, err)
	}
}

func setupLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger
}

func runMigrate(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	db, err := postgres.Open(ctx, postgres.ConnectionConfig{URL: cfg.Database.URL})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	logger.Info("Database schema is up to date")
	return nil
}

func runClaims(ctx context.Context, cfg *config.Config, logger *logrus.Logger, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("-email is required")
	}

	admin, err := identity.NewFirebaseAdmin(ctx, identity.FirebaseConfig{
		ProjectID:    cfg.Identity.ProjectID,
		EmulatorMode: cfg.EmulatorMode(),
	})
	if err != nil {
		return err
	}

	if cmd == "grant-super-admin" {
		return grantSuperAdmin(ctx, admin, *email, logger)
	}
	return revokeSuperAdmin(ctx, admin, *email, logger)
}
