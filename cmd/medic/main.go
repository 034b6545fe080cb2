// Package main is the entry point for the medic CLI.
package main

import (
	"fmt"
	"os"

	"github.com/servermedic/medic/cmd/medic/commands"
	"github.com/servermedic/medic/internal/errors"
)

func main() {
	err := commands.Execute()
	if err == nil {
		return
	}

	// run signals findings through ExitError sentinels with a nil Err;
	// those already rendered a report and only need the exit code.
	var exitErr *errors.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.Err)
		}
		if exitErr.Suggestion != "" {
			fmt.Fprintln(os.Stderr, exitErr.Suggestion)
		}
		os.Exit(exitErr.Code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(errors.ExitFailure)
}
