package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/agbru/zkfib/internal/cli"
	"github.com/agbru/zkfib/internal/config"
	apperrors "github.com/agbru/zkfib/internal/errors"
	"github.com/agbru/zkfib/internal/fibonacci"
	"github.com/agbru/zkfib/internal/logging"
	"github.com/agbru/zkfib/internal/orchestration"
	"github.com/agbru/zkfib/internal/server"
	"github.com/agbru/zkfib/internal/service"
	"github.com/agbru/zkfib/internal/store"
	"github.com/agbru/zkfib/internal/ui"
)

// Application is one zkfib invocation: its configuration and the
// calculators it may run.
type Application struct {
	Config    config.AppConfig
	Factory   fibonacci.CalculatorFactory
	ErrWriter io.Writer
}

// New parses args (args[0] is the program name) into an Application.
func New(args []string, errWriter io.Writer) (*Application, error) {
	factory := fibonacci.GlobalFactory()

	programName := "zkfib"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter, factory.List())
	if err != nil {
		return nil, err
	}
	return &Application{Config: cfg, Factory: factory, ErrWriter: errWriter}, nil
}

// Run executes the configured mode and returns the process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	if a.Config.ShowVersion {
		PrintVersion(out)
		return apperrors.ExitSuccess
	}

	level, err := logging.ParseLevel(a.Config.LogLevel)
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Configuration error: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	logging.Setup(level, a.ErrWriter, !a.Config.ServerMode)
	ui.InitTheme(a.Config.NoColor || !ui.IsTerminal(os.Stdout))

	if a.Config.ServerMode {
		return a.runServer(ctx)
	}
	return a.runCalculate(ctx, out)
}

func (a *Application) runServer(ctx context.Context) int {
	ctx, stop := SetupSignals(ctx)
	defer stop()

	logger := logging.NewDefaultLogger()
	st, err := store.Open(ctx, a.Config.CacheAddr, a.Config.CacheTTL, logger)
	if err != nil {
		logger.Error("record cache unavailable", err, logging.String("addr", a.Config.CacheAddr))
		return apperrors.ExitErrorGeneric
	}
	defer st.Close()

	limits := service.Limits{MaxN: a.Config.MaxN, MaxRecursiveN: a.Config.MaxRecursiveN}
	svc := service.NewCalculatorService(a.Factory, st, limits, logger.With(logging.String("component", "service")))
	srv := server.NewServer(svc, a.Config, server.WithLogger(logger.With(logging.String("component", "server"))))
	if err := srv.Start(ctx); err != nil {
		fmt.Fprintf(a.ErrWriter, "Server error: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	return apperrors.ExitSuccess
}

func (a *Application) runCalculate(ctx context.Context, out io.Writer) int {
	ctx, cancel := SetupLifecycle(ctx, a.Config.Timeout)
	defer cancel()

	calculators, skipped := cli.GetCalculatorsToRun(a.Config, a.Factory)
	if len(calculators) == 0 {
		fmt.Fprintf(a.ErrWriter, "No algorithm can run for n=%d.\n", a.Config.N)
		return apperrors.ExitErrorConfig
	}

	if !a.Config.JSONOutput && !a.Config.Quiet {
		cli.PrintExecutionConfig(a.Config, out)
		cli.PrintExecutionMode(calculators, skipped, out)
	}

	progressOut := out
	if a.Config.Quiet || a.Config.JSONOutput {
		progressOut = io.Discard
	}
	results := orchestration.ExecuteCalculations(ctx, calculators, a.Config, progressOut)

	if a.Config.JSONOutput {
		return a.printJSONResults(results, out)
	}
	if a.Config.Quiet {
		return a.printQuietResult(results, out)
	}

	exitCode := orchestration.AnalyzeComparisonResults(results, a.Config, out)
	if exitCode != apperrors.ExitSuccess || a.Config.OutputFile == "" {
		return exitCode
	}
	if err := a.saveBestResult(results); err != nil {
		return apperrors.ExitErrorGeneric
	}
	fmt.Fprintf(out, "\n%sResult saved to: %s%s%s\n",
		ui.ColorGreen(), ui.ColorCyan(), a.Config.OutputFile, ui.ColorReset())
	return exitCode
}

func (a *Application) printQuietResult(results []orchestration.CalculationResult, out io.Writer) int {
	best, ok := orchestration.BestResult(results)
	if !ok {
		return apperrors.HandleCalculationError(firstError(results), 0, a.ErrWriter, ui.Colors{})
	}
	if err := consistency(results, a.Config.N); err != nil {
		return apperrors.HandleCalculationError(err, 0, a.ErrWriter, ui.Colors{})
	}
	cli.DisplayQuietResult(out, best.Result.Pair)
	if err := a.saveBestResult(results); err != nil {
		return apperrors.ExitErrorGeneric
	}
	return apperrors.ExitSuccess
}

func (a *Application) printJSONResults(results []orchestration.CalculationResult, out io.Writer) int {
	output := make([]cli.JSONResult, len(results))
	for i, res := range results {
		output[i] = cli.NewJSONResult(res.Name, res.Result, res.Duration, res.Err)
	}
	if err := cli.WriteJSON(out, output); err != nil {
		return apperrors.ExitErrorGeneric
	}
	if _, ok := orchestration.BestResult(results); !ok {
		return apperrors.ExitCode(firstError(results))
	}
	return apperrors.ExitCode(consistency(results, a.Config.N))
}

func (a *Application) saveBestResult(results []orchestration.CalculationResult) error {
	if a.Config.OutputFile == "" {
		return nil
	}
	best, ok := orchestration.BestResult(results)
	if !ok {
		return nil
	}
	if err := cli.WriteResultToFile(best.Result, best.Duration, best.Name, a.Config.OutputFile); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error saving result: %v\n", err)
		return err
	}
	return nil
}

// IsHelpError reports whether err comes from -h or -help.
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}

func firstError(results []orchestration.CalculationResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// consistency returns a MismatchError when two successful results differ.
func consistency(results []orchestration.CalculationResult, n uint32) error {
	var ref *orchestration.CalculationResult
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			continue
		}
		if ref == nil {
			ref = r
			continue
		}
		if r.Result.Pair != ref.Result.Pair {
			return apperrors.MismatchError{
				N:         uint64(n),
				Algorithm: r.Name,
				Expected:  ref.Result.Pair.String(),
				Got:       r.Result.Pair.String(),
			}
		}
	}
	return nil
}
