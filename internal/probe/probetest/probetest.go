// Package probetest provides a canned-output probe.Runner for checker tests.
package probetest

import (
	"context"
	"strings"

	"github.com/servermedic/medic/internal/errors"
	"github.com/servermedic/medic/internal/probe"
)

// Runner replays canned outputs keyed by the full command line
// ("name arg1 arg2"). A command without a registered response returns an
// error, which checkers treat as an unavailable probe, so tests only need
// to register the commands they exercise.
type Runner struct {
	// Responses maps command lines to canned output.
	Responses map[string]probe.Output

	// Errs maps command lines to run errors.
	Errs map[string]error

	// Missing marks binaries LookPath reports as not installed.
	Missing map[string]bool

	// Calls records every executed command line in order.
	Calls []string
}

// New returns an empty Runner ready for Respond calls.
func New() *Runner {
	return &Runner{
		Responses: make(map[string]probe.Output),
		Errs:      make(map[string]error),
		Missing:   make(map[string]bool),
	}
}

// Respond registers stdout for a command line with exit code 0.
func (r *Runner) Respond(cmdline, stdout string) *Runner {
	r.Responses[cmdline] = probe.Output{Stdout: stdout}
	return r
}

// RespondExit registers stdout for a command line with an explicit exit code.
func (r *Runner) RespondExit(cmdline, stdout string, exitCode int) *Runner {
	r.Responses[cmdline] = probe.Output{Stdout: stdout, ExitCode: exitCode}
	return r
}

// Fail registers a run error for a command line.
func (r *Runner) Fail(cmdline string, err error) *Runner {
	r.Errs[cmdline] = err
	return r
}

// MarkMissing makes LookPath fail for a binary.
func (r *Runner) MarkMissing(name string) *Runner {
	r.Missing[name] = true
	return r
}

// Run implements probe.Runner.
func (r *Runner) Run(_ context.Context, name string, args ...string) (probe.Output, error) {
	line := commandLine(name, args)
	r.Calls = append(r.Calls, line)
	if err, ok := r.Errs[line]; ok {
		return probe.Output{}, err
	}
	if out, ok := r.Responses[line]; ok {
		return out, nil
	}
	return probe.Output{}, errors.Newf("probetest: no response for %q", line)
}

// LookPath implements probe.Runner.
func (r *Runner) LookPath(name string) (string, error) {
	if r.Missing[name] {
		return "", errors.Newf("probetest: %s not installed", name)
	}
	return "/usr/bin/" + name, nil
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
