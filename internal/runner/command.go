package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/umapps/aci-deploy/internal/message"
)

// ErrExecutableNotFound is returned when the requested binary is not on PATH.
var ErrExecutableNotFound = errors.New("executable not found")

const redacted = "******"

// secretFlags are flags whose value must never reach a log line or an error message.
var secretFlags = map[string]bool{
	"--registry-password": true,
	"--password":          true,
	"--secret":            true,
}

var secretTextRegex = regexp.MustCompile(`(--registry-password|--password|--secret)(=|\s+)(\S+)`)

// Result is the outcome of an external command that ran to completion.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Options change how a single invocation is executed and logged.
type Options struct {
	// SecretOutput keeps stdout out of the debug log, for commands that print credentials.
	SecretOutput bool
	// Interactive attaches the terminal so the command can prompt the operator. Stderr is
	// still captured for error reporting.
	Interactive bool
}

// CommandRunner is the only way the rest of the module talks to external CLIs.
type CommandRunner interface {
	Run(ctx context.Context, args ...string) (Result, error)
	RunWithOptions(ctx context.Context, opts Options, args ...string) (Result, error)
}

// ExitError reports a command that started but exited non-zero.
type ExitError struct {
	Args   []string
	Result Result
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command '%s' exited with code %d", strings.Join(RedactArgs(e.Args), " "), e.Result.ExitCode)
	if stderr := lastLines(e.Result.Stderr, 3); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// ExecCommandFunc creates the process for a command; replaced in tests.
type ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

type DefaultCommandRunner struct {
	// Timeout bounds every invocation. Zero means the caller's context is the only limit.
	Timeout time.Duration
	// Stdin and Terminal are attached to interactive commands. Default to os.Stdin and os.Stderr.
	Stdin       io.Reader
	Terminal    io.Writer
	execCommand ExecCommandFunc
}

var _ CommandRunner = &DefaultCommandRunner{}

func NewDefaultCommandRunner(timeout time.Duration) *DefaultCommandRunner {
	return &DefaultCommandRunner{
		Timeout:     timeout,
		Stdin:       os.Stdin,
		Terminal:    os.Stderr,
		execCommand: exec.CommandContext,
	}
}

func (d *DefaultCommandRunner) Run(ctx context.Context, args ...string) (Result, error) {
	return d.RunWithOptions(ctx, Options{}, args...)
}

func (d *DefaultCommandRunner) RunWithOptions(ctx context.Context, opts Options, args ...string) (Result, error) {
	if len(args) == 0 {
		return Result{}, errors.New("no command given")
	}
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	execCommand := d.execCommand
	if execCommand == nil {
		execCommand = exec.CommandContext
	}

	message.Debug("Running command: %s", strings.Join(RedactArgs(args), " "))
	var stdout, stderr bytes.Buffer
	cmd := execCommand(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if opts.Interactive {
		cmd.Stdin = d.Stdin
		if d.Terminal != nil {
			cmd.Stderr = io.MultiWriter(&stderr, d.Terminal)
		}
	}
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if out := strings.TrimSpace(result.Stdout); out != "" {
		if opts.SecretOutput {
			out = redacted
		}
		message.Debug("Command output: %s", out)
	}
	if err == nil {
		return result, nil
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return result, fmt.Errorf("%w: %s", ErrExecutableNotFound, args[0])
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("command '%s' aborted: %w", strings.Join(RedactArgs(args), " "), ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, &ExitError{Args: args, Result: result}
	}
	return result, fmt.Errorf("failed to run '%s': %w", args[0], err)
}

// RedactArgs returns a copy of args with the values of secret-bearing flags masked.
func RedactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out); i++ {
		arg := out[i]
		if name, _, ok := strings.Cut(arg, "="); ok && secretFlags[name] {
			out[i] = name + "=" + redacted
			continue
		}
		if secretFlags[arg] && i+1 < len(out) {
			out[i+1] = redacted
			i++
		}
	}
	return out
}

// RedactText masks secret flag values inside free text such as wrapped error messages.
func RedactText(s string) string {
	return secretTextRegex.ReplaceAllString(s, "${1}${2}"+redacted)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}
