// Package probe executes the external diagnostic commands checkers rely on.
// It wraps os/exec behind a small interface so checker packages can be tested
// against canned command output without touching the host.
package probe

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/servermedic/medic/internal/errors"
	"github.com/servermedic/medic/internal/logging"
	"github.com/servermedic/medic/pkg/fileutil"
)

// DefaultTimeout bounds a single external command when the runner has no
// explicit timeout configured.
const DefaultTimeout = 30 * time.Second

// Output holds the captured result of one command invocation.
type Output struct {
	// Stdout is the complete standard output of the command.
	Stdout string

	// Stderr is the complete standard error of the command.
	Stderr string

	// ExitCode is the command's exit status. Non-zero exits are normal
	// diagnostic signal (grep finds nothing, systemctl reports inactive)
	// and are not surfaced as errors.
	ExitCode int
}

// Text returns stdout with surrounding whitespace trimmed.
func (o Output) Text() string {
	return strings.TrimSpace(o.Stdout)
}

// Lines splits trimmed stdout into lines. Empty output yields nil.
func (o Output) Lines() []string {
	text := o.Text()
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// Runner abstracts command execution for checkers.
type Runner interface {
	// Run executes a command and captures its output. A non-zero exit
	// status is reported through Output.ExitCode, not as an error; errors
	// are reserved for commands that could not run at all (binary missing,
	// timeout, context cancelled).
	Run(ctx context.Context, name string, args ...string) (Output, error)

	// LookPath resolves the full path of a binary, or returns an error
	// when the binary is not installed.
	LookPath(name string) (string, error)
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct {
	// Timeout bounds each command. Zero means DefaultTimeout.
	Timeout time.Duration

	// Log, when set, records every command line at trace level.
	Log *slog.Logger
}

// Run executes name with args under the runner's timeout.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (Output, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if r.Log != nil {
		r.Log.Log(ctx, logging.LevelTrace, "exec", "cmd", name, "args", strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		// The context check comes first: a killed process also surfaces
		// as an ExitError, which would otherwise mask the timeout.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, errors.Wrapf(ctxErr, "command %s timed out after %s", name, timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		return out, errors.Wrapf(err, "running %s", name)
	}
	return out, nil
}

// LookPath resolves name on PATH.
func (r ExecRunner) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", errors.Wrapf(err, "looking up %s", name)
	}
	return path, nil
}

// ReadFileString reads path whole, bounded by fileutil.MaxFileSize.
// Checkers use it for /proc files and other small host state.
func ReadFileString(path string) (string, error) {
	data, err := fileutil.ReadFileWithLimit(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// TailFileString reads at most maxBytes from the end of path. Log scanners
// use it so unbounded log files stay cheap to inspect.
func TailFileString(path string, maxBytes int64) (string, error) {
	data, err := fileutil.ReadFileTail(path, maxBytes)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
