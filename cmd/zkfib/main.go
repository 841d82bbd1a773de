// Command zkfib computes Fibonacci pairs under 32-bit wraparound, compares
// the algorithms that produce them and serves the results over HTTP.
package main

import (
	"context"
	"os"

	"github.com/agbru/zkfib/internal/app"
	apperrors "github.com/agbru/zkfib/internal/errors"
)

func main() {
	if app.HasVersionFlag(os.Args[1:]) {
		app.PrintVersion(os.Stdout)
		return
	}

	application, err := app.New(os.Args, os.Stderr)
	if err != nil {
		if app.IsHelpError(err) {
			return
		}
		os.Exit(apperrors.ExitCode(err))
	}
	os.Exit(application.Run(context.Background(), os.Stdout))
}
