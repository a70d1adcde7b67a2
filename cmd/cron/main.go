package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/monoclecat/cleaning-schedule-management-system/internal/cron"
	"github.com/monoclecat/cleaning-schedule-management-system/internal/runner"
	"github.com/monoclecat/cleaning-schedule-management-system/internal/validator"
)

var version = "dev"

type config struct {
	root     string
	activate string
	python   string
	manage   string
	command  string
	timeout  time.Duration
	strict   bool
}

func main() {
	var cfg config
	var showVersion bool

	godotenv.Load()

	flag.StringVar(&cfg.root, "root", envString("CLEANSYS_ROOT", "/var/www/cleansys/"), "Deployment root directory")
	flag.StringVar(&cfg.activate, "activate", envString("CLEANSYS_ACTIVATE", "bin/activate"), "Virtualenv activation script, relative to the deployment root")
	flag.StringVar(&cfg.python, "python", envString("CLEANSYS_PYTHON", "python3"), "Python interpreter")
	flag.StringVar(&cfg.manage, "manage", envString("CLEANSYS_MANAGE", "manage.py"), "Django management entry point")
	flag.StringVar(&cfg.command, "cmd", envString("CLEANSYS_COMMAND", "create_plots"), "Management command to run")
	flag.DurationVar(&cfg.timeout, "timeout", envDuration("CLEANSYS_TIMEOUT", 0), "Abort the run after this duration (0 disables)")
	flag.BoolVar(&cfg.strict, "strict", false, "Halt on precondition failures instead of carrying on")
	flag.BoolVar(&showVersion, "version", false, "Print the version and exit")

	flag.Parse()

	if showVersion {
		fmt.Printf("cleansys cron runner %s\n", version)
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("run_id", uuid.New().String())

	v := validator.New()
	v.Check(cfg.root != "", "root", "must be provided")
	v.Check(cfg.activate != "", "activate", "must be provided")
	v.Check(cfg.python != "", "python", "must be provided")
	v.Check(cfg.manage != "", "manage", "must be provided")
	v.Check(validator.Matches(cfg.command, validator.CommandRX), "cmd", "must be a management command name (letters, digits and underscores)")
	v.Check(cfg.timeout >= 0, "timeout", "must not be negative")

	if !v.Valid() {
		for field, reason := range v.FieldErrors {
			logger.Error("invalid configuration", "field", field, "reason", reason)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	job := &cron.Job{
		Root:     cfg.root,
		Activate: cfg.activate,
		Python:   cfg.python,
		Manage:   cfg.manage,
		Command:  cfg.command,
		Strict:   cfg.strict,
		Stdout:   os.Stdout,
		Logger:   logger,
		Runner:   runner.NewManageRunner(os.Stdout, os.Stderr),
	}

	err := job.Run(ctx)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func envString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
