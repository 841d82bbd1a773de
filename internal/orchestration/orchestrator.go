// Package orchestration runs the selected calculators concurrently for the
// command line and reports how their results compare.
package orchestration

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agbru/zkfib/internal/cli"
	"github.com/agbru/zkfib/internal/config"
	apperrors "github.com/agbru/zkfib/internal/errors"
	"github.com/agbru/zkfib/internal/fibonacci"
	"github.com/agbru/zkfib/internal/ui"
)

// CalculationResult is the outcome of one calculator run.
type CalculationResult struct {
	// Name is the algorithm name.
	Name string
	// Result is meaningful only when Err is nil.
	Result   fibonacci.Result
	Duration time.Duration
	Err      error
}

// ProgressBufferMultiplier sizes the progress channel per calculator.
const ProgressBufferMultiplier = 5

// ExecuteCalculations runs calculators concurrently for cfg.N while a
// progress display writes to out. Results are returned in the order of
// calculators; individual failures are stored in CalculationResult.Err.
func ExecuteCalculations(ctx context.Context, calculators []fibonacci.Calculator, cfg config.AppConfig, out io.Writer) []CalculationResult {
	g, ctx := errgroup.WithContext(ctx)
	results := make([]CalculationResult, len(calculators))
	progressChan := make(chan fibonacci.ProgressUpdate, len(calculators)*ProgressBufferMultiplier)

	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go cli.DisplayProgress(&displayWg, progressChan, len(calculators), out)

	for idx, calculator := range calculators {
		g.Go(func() error {
			startTime := time.Now()
			res, err := calculator.Calculate(ctx, progressChan, idx, cfg.N)
			if err != nil {
				err = apperrors.CalculationError{Algorithm: calculator.Name(), Cause: err}
			}
			results[idx] = CalculationResult{
				Name: calculator.Name(), Result: res, Duration: time.Since(startTime), Err: err,
			}
			return nil
		})
	}

	_ = g.Wait()
	close(progressChan)
	displayWg.Wait()

	return results
}

// BestResult returns the fastest successful result.
func BestResult(results []CalculationResult) (CalculationResult, bool) {
	var best CalculationResult
	found := false
	for _, r := range results {
		if r.Err == nil && (!found || r.Duration < best.Duration) {
			best, found = r, true
		}
	}
	return best, found
}

// AnalyzeComparisonResults sorts results by duration, prints a summary
// table with the operation counts of each algorithm, checks that every
// successful run produced the same pair and displays it. It returns the
// process exit code.
func AnalyzeComparisonResults(results []CalculationResult, cfg config.AppConfig, out io.Writer) int {
	sort.SliceStable(results, func(i, j int) bool {
		if (results[i].Err == nil) != (results[j].Err == nil) {
			return results[i].Err == nil
		}
		return results[i].Duration < results[j].Duration
	})

	var reference *CalculationResult
	var firstError error
	successCount := 0

	fmt.Fprintf(out, "\n--- Comparison Summary ---\n")
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "%sAlgorithm\tDuration\tCalls\tArithmetic ops\tStatus%s\n", ui.ColorBold(), ui.ColorReset())

	for i := range results {
		res := &results[i]
		var status, calls, arith string
		if res.Err != nil {
			status = fmt.Sprintf("%sFailure (%v)%s", ui.ColorRed(), res.Err, ui.ColorReset())
			calls, arith = "-", "-"
			if firstError == nil {
				firstError = res.Err
			}
		} else {
			status = fmt.Sprintf("%sSuccess%s", ui.ColorGreen(), ui.ColorReset())
			calls = strconv.FormatUint(res.Result.Ops.Calls, 10)
			arith = strconv.FormatUint(res.Result.Ops.Arithmetic(), 10)
			successCount++
			if reference == nil {
				reference = res
			}
		}
		duration := cli.FormatExecutionDuration(res.Duration)
		if res.Duration == 0 {
			duration = "< 1µs"
		}
		fmt.Fprintf(tw, "%s%s%s\t%s%s%s\t%s\t%s\t%s\n",
			ui.ColorBlue(), res.Name, ui.ColorReset(),
			ui.ColorYellow(), duration, ui.ColorReset(),
			calls, arith, status)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(out, "Warning: failed to flush tabwriter: %v\n", err)
	}

	if successCount == 0 {
		fmt.Fprintf(out, "\nGlobal Status: Failure. No algorithm could complete the calculation.\n")
		return apperrors.HandleCalculationError(firstError, 0, out, ui.Colors{})
	}

	for _, res := range results {
		if res.Err == nil && res.Result.Pair != reference.Result.Pair {
			fmt.Fprintf(out, "\nGlobal Status: CRITICAL ERROR! The algorithms disagree.\n")
			return apperrors.HandleCalculationError(apperrors.MismatchError{
				N:         uint64(cfg.N),
				Algorithm: res.Name,
				Expected:  reference.Result.Pair.String(),
				Got:       res.Result.Pair.String(),
			}, 0, out, ui.Colors{})
		}
	}

	fmt.Fprintf(out, "\nGlobal Status: Success. All valid results are consistent.\n")
	cli.DisplayResult(reference.Result, reference.Duration, cfg.Details, out)
	return apperrors.ExitSuccess
}
