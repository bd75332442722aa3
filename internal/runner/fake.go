package runner

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// FakeCommandRunner replays scripted responses and records every invocation. Responses are
// matched by argument prefix in registration order; unmatched commands succeed with no output.
type FakeCommandRunner struct {
	mu        sync.Mutex
	responses []*FakeResponse
	calls     [][]string
	options   []Options
}

var _ CommandRunner = &FakeCommandRunner{}

type FakeResponse struct {
	prefix   []string
	result   Result
	err      error
	once     bool
	used     bool
	block    bool
	callback func(args []string)
}

func NewFakeCommandRunner() *FakeCommandRunner {
	return &FakeCommandRunner{}
}

// On registers a response for every command starting with prefix.
func (f *FakeCommandRunner) On(prefix ...string) *FakeResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &FakeResponse{prefix: prefix}
	f.responses = append(f.responses, r)
	return r
}

// Return sets the stdout of a successful invocation.
func (r *FakeResponse) Return(stdout string) *FakeResponse {
	r.result = Result{Stdout: stdout}
	return r
}

// Fail makes the command exit with the given code and stderr.
func (r *FakeResponse) Fail(exitCode int, stderr string) *FakeResponse {
	r.result = Result{ExitCode: exitCode, Stderr: stderr}
	return r
}

// NotFound simulates a missing binary.
func (r *FakeResponse) NotFound() *FakeResponse {
	r.err = ErrExecutableNotFound
	return r
}

// Once limits the response to the first matching invocation.
func (r *FakeResponse) Once() *FakeResponse {
	r.once = true
	return r
}

// Block makes the invocation hang until its context is done.
func (r *FakeResponse) Block() *FakeResponse {
	r.block = true
	return r
}

// Then runs fn with the invocation arguments before the response is returned.
func (r *FakeResponse) Then(fn func(args []string)) *FakeResponse {
	r.callback = fn
	return r
}

func (f *FakeCommandRunner) Run(ctx context.Context, args ...string) (Result, error) {
	return f.RunWithOptions(ctx, Options{}, args...)
}

func (f *FakeCommandRunner) RunWithOptions(ctx context.Context, opts Options, args ...string) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, slices.Clone(args))
	f.options = append(f.options, opts)
	response := f.match(args)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("command '%s' aborted: %w", args[0], err)
	}
	if response == nil {
		return Result{}, nil
	}
	if response.callback != nil {
		response.callback(args)
	}
	if response.block {
		<-ctx.Done()
		return Result{}, fmt.Errorf("command '%s' aborted: %w", args[0], ctx.Err())
	}
	if response.err != nil {
		return Result{}, fmt.Errorf("%w: %s", response.err, args[0])
	}
	if response.result.ExitCode != 0 {
		return response.result, &ExitError{Args: args, Result: response.result}
	}
	return response.result, nil
}

func (f *FakeCommandRunner) match(args []string) *FakeResponse {
	for _, r := range f.responses {
		if r.once && r.used {
			continue
		}
		if hasPrefix(args, r.prefix) {
			r.used = true
			return r
		}
	}
	return nil
}

// Calls returns every recorded invocation.
func (f *FakeCommandRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallCount returns how many recorded invocations start with prefix.
func (f *FakeCommandRunner) CallCount(prefix ...string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if hasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

// CallCountWith counts the invocations starting with prefix that ran with exactly opts.
func (f *FakeCommandRunner) CallCountWith(opts Options, prefix ...string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i, call := range f.calls {
		if hasPrefix(call, prefix) && f.options[i] == opts {
			n++
		}
	}
	return n
}

// CommandLines returns the recorded invocations joined by spaces, handy for sequence asserts.
func (f *FakeCommandRunner) CommandLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.calls))
	for i, call := range f.calls {
		lines[i] = strings.Join(call, " ")
	}
	return lines
}

func hasPrefix(args, prefix []string) bool {
	return len(args) >= len(prefix) && slices.Equal(args[:len(prefix)], prefix)
}
