package runner

import (
	"context"
	"time"
)

// Invocation describes one management command execution.
type Invocation struct {
	Dir     string   // working directory; empty means the process working directory
	Env     []string // child environment; nil inherits the process environment
	Python  string   // interpreter argv[0], bare name or resolved path
	Script  string   // management entry point, e.g. manage.py
	Command string   // management command, e.g. create_plots
}

// Result reports a subprocess that ran to completion. A non-zero exit code
// is a valid result; errors are reserved for commands that could not run.
type Result struct {
	ExitCode int
	Duration time.Duration
}

type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}
