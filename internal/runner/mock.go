package runner

import "context"

// MockRunner records invocations for tests. RunFunc, when set, supplies the
// result; otherwise every run succeeds with a zero Result.
type MockRunner struct {
	Invocations []Invocation
	RunFunc     func(ctx context.Context, inv Invocation) (*Result, error)
}

func (m *MockRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	m.Invocations = append(m.Invocations, inv)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, inv)
	}
	return &Result{}, nil
}
