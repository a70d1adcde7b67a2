package cron

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/monoclecat/cleaning-schedule-management-system/internal/runner"
	"github.com/monoclecat/cleaning-schedule-management-system/internal/venv"
)

// Job is one scheduler-driven run: enter the deployment root, activate its
// virtualenv, invoke the management command, confirm on stdout.
//
// Stdout carries only the observable contract: the two diagnostic lines, the
// final confirmation line and whatever the command itself prints there.
// Everything operational goes to the Logger.
type Job struct {
	Root     string // deployment root, e.g. /var/www/cleansys/
	Activate string // activation script, relative to Root unless absolute
	Python   string // interpreter name as printed in the confirmation line
	Manage   string // management entry point, e.g. manage.py
	Command  string // management command, e.g. create_plots

	// Strict aborts the sequence on the first failed step. The default
	// reports precondition failures and carries on regardless.
	Strict bool

	Stdout io.Writer
	Logger *slog.Logger
	Runner runner.Runner
}

// Run performs the sequence. In strict mode the returned error is the first
// failed step; otherwise it is only non-nil when the confirmation line could
// not be written.
func (j *Job) Run(ctx context.Context) error {
	j.Logger.Info("run started", "root", j.Root, "command", j.Command, "strict", j.Strict)

	// Step 1: enter the deployment root. On failure the effective directory
	// stays the unchanged process working directory.
	dir, err := j.enterRoot()
	if err != nil {
		fmt.Fprintln(j.Stdout, directoryChangeFailure(j.Root))
		j.Logger.Error("changing directory failed", "root", j.Root, "error", err)
		if j.Strict {
			return fmt.Errorf("changing directory to %s: %w", j.Root, err)
		}
	}

	// Step 2: activate the virtualenv scoped to the child process. On
	// failure the child inherits the plain process environment, exactly
	// what a failed `source` leaves behind.
	env, err := venv.Activate(dir, j.Activate, os.Environ())
	if err != nil {
		fmt.Fprintln(j.Stdout, activationFailure(j.Root, j.Activate))
		j.Logger.Error("activating virtualenv failed", "activate", j.Activate, "error", err)
		if j.Strict {
			return fmt.Errorf("activating virtualenv: %w", err)
		}
	}

	// Step 3: invoke the management command. Its own failures are opaque
	// to the sequence; they surface through the child's streams and, in
	// strict mode, as a hard failure.
	inv := runner.Invocation{
		Dir:     dir,
		Python:  j.Python,
		Script:  j.Manage,
		Command: j.Command,
	}
	if env != nil {
		inv.Env = env.Environ()
		inv.Python = env.LookPath(j.Python)
	}

	result, err := j.Runner.Run(ctx, inv)
	switch {
	case err != nil:
		j.Logger.Error("command failed", "command", j.Command, "error", err)
		if j.Strict {
			return fmt.Errorf("running %s: %w", j.Command, err)
		}
	case result.ExitCode != 0:
		j.Logger.Error("command exited non-zero", "command", j.Command,
			"exit_code", result.ExitCode, "duration", result.Duration)
		if j.Strict {
			return fmt.Errorf("%s %s %s exited with code %d", j.Python, j.Manage, j.Command, result.ExitCode)
		}
	default:
		j.Logger.Info("command finished", "command", j.Command,
			"exit_code", result.ExitCode, "duration", result.Duration)
	}

	// Step 4: the timestamped confirmation line. The process exit status is
	// the status of this write.
	_, err = fmt.Fprintf(j.Stdout, "%s: %s %s %s was run.\n",
		time.Now().Format(time.UnixDate), j.Python, j.Manage, j.Command)
	if err != nil {
		return fmt.Errorf("writing confirmation: %w", err)
	}
	j.Logger.Info("run confirmed", "command", j.Command)

	return nil
}

func (j *Job) enterRoot() (string, error) {
	fi, err := os.Stat(j.Root)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("%s is not a directory", j.Root)
	}
	return j.Root, nil
}

// The two diagnostics are part of the observable contract. Scheduler logs
// are matched against these exact strings, rendered from the configured
// paths.
func directoryChangeFailure(root string) string {
	return fmt.Sprintf("Changing directory to %s failed!", strings.TrimSuffix(root, "/"))
}

func activationFailure(root, activate string) string {
	path := activate
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, activate)
	}
	return fmt.Sprintf("Activating virtualenv in %s failed!", path)
}
