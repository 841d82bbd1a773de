package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/agbru/zkfib/internal/config"
	"github.com/agbru/zkfib/internal/fibonacci"
	"github.com/agbru/zkfib/internal/ui"
)

// GetCalculatorsToRun returns the calculators selected by cfg.Algo, in
// sorted name order for "all". Recursive algorithms are left out of "all"
// when n exceeds the effective recursion limit; skipped lists them.
func GetCalculatorsToRun(cfg config.AppConfig, factory fibonacci.CalculatorFactory) (calculators []fibonacci.Calculator, skipped []string) {
	if cfg.Algo != config.DefaultAlgo {
		if calc, err := factory.Get(cfg.Algo); err == nil {
			return []fibonacci.Calculator{calc}, nil
		}
		return nil, nil
	}
	limit := fibonacci.RecursionLimit(cfg.MaxRecursiveN)
	for _, k := range factory.List() {
		if cfg.N > limit && fibonacci.IsRecursive(k) {
			skipped = append(skipped, k)
			continue
		}
		if calc, err := factory.Get(k); err == nil {
			calculators = append(calculators, calc)
		}
	}
	return calculators, skipped
}

// PrintExecutionConfig prints the run parameters.
func PrintExecutionConfig(cfg config.AppConfig, out io.Writer) {
	fmt.Fprintf(out, "--- Execution Configuration ---\n")
	fmt.Fprintf(out, "Computing %s(F(%d), F(%d))%s mod 2^32 with a timeout of %s%s%s.\n",
		ui.ColorMagenta(), cfg.N, uint64(cfg.N)+1, ui.ColorReset(), ui.ColorYellow(), cfg.Timeout, ui.ColorReset())
	fmt.Fprintf(out, "Environment: %s%d%s logical processors, Go %s%s%s.\n",
		ui.ColorCyan(), runtime.NumCPU(), ui.ColorReset(), ui.ColorCyan(), runtime.Version(), ui.ColorReset())
	fmt.Fprintf(out, "Recursion limit: %s%d%s.\n", ui.ColorCyan(), fibonacci.RecursionLimit(cfg.MaxRecursiveN), ui.ColorReset())
	if cfg.MaxN > 0 {
		fmt.Fprintf(out, "Index limit: %s%d%s.\n", ui.ColorCyan(), cfg.MaxN, ui.ColorReset())
	}
}

// PrintExecutionMode prints whether one algorithm runs or all are compared.
func PrintExecutionMode(calculators []fibonacci.Calculator, skipped []string, out io.Writer) {
	var modeDesc string
	if len(calculators) > 1 {
		modeDesc = fmt.Sprintf("Parallel comparison of %d algorithms", len(calculators))
	} else if len(calculators) == 1 {
		modeDesc = fmt.Sprintf("Single calculation with the %s%s%s algorithm",
			ui.ColorGreen(), calculators[0].Name(), ui.ColorReset())
	} else {
		modeDesc = "No algorithm selected"
	}
	fmt.Fprintf(out, "Execution mode: %s.\n", modeDesc)
	for _, name := range skipped {
		fmt.Fprintf(out, "%sSkipping %s: n is above the recursion limit.%s\n", ui.ColorYellow(), name, ui.ColorReset())
	}
	fmt.Fprintf(out, "\n--- Starting Execution ---\n")
}
