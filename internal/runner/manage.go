package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// ManageRunner invokes a Django management command through the deployment's
// manage.py entry point. The child's stdout and stderr pass straight through
// to the configured writers; nothing is captured or translated.
type ManageRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func NewManageRunner(stdout, stderr io.Writer) *ManageRunner {
	return &ManageRunner{
		Stdout: stdout,
		Stderr: stderr,
	}
}

func (mr *ManageRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if inv.Python == "" || inv.Script == "" || inv.Command == "" {
		return nil, fmt.Errorf("incomplete invocation: python=%q script=%q command=%q",
			inv.Python, inv.Script, inv.Command)
	}

	cmd := exec.CommandContext(ctx, inv.Python, inv.Script, inv.Command)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	cmd.Stdout = mr.Stdout
	cmd.Stderr = mr.Stderr

	start := time.Now()
	err := cmd.Run()

	result := &Result{
		Duration: time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("execution timed out: %w", ctx.Err())
	}
	if ctx.Err() == context.Canceled {
		return nil, fmt.Errorf("execution canceled: %w", ctx.Err())
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("running %s %s %s: %w", inv.Python, inv.Script, inv.Command, err)
	}

	return result, nil
}
