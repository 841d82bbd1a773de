// Package cli renders calculation progress and results on the terminal.
package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/agbru/zkfib/internal/fibonacci"
	"github.com/agbru/zkfib/internal/publicvalues"
	"github.com/agbru/zkfib/internal/ui"
)

// FormatExecutionDuration formats d as microseconds below a millisecond,
// milliseconds below a second and with Duration.String otherwise.
func FormatExecutionDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	} else if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.String()
}

const (
	// ProgressRefreshRate is the spinner refresh period.
	ProgressRefreshRate = 100 * time.Millisecond
	// ProgressBarWidth is the width in characters of the progress bar.
	ProgressBarWidth = 40
)

// Spinner abstracts the terminal spinner so DisplayProgress can be tested.
type Spinner interface {
	Start()
	Stop()
	UpdateSuffix(suffix string)
}

type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start()                     { rs.s.Start() }
func (rs *realSpinner) Stop()                      { rs.s.Stop() }
func (rs *realSpinner) UpdateSuffix(suffix string) { rs.s.Suffix = suffix }

var newSpinner = func(options ...spinner.Option) Spinner {
	s := spinner.New(spinner.CharSets[11], ProgressRefreshRate, options...)
	return &realSpinner{s}
}

// ProgressState tracks the progress of concurrently running calculators.
type ProgressState struct {
	progresses []float64
}

// NewProgressState tracks numCalculators calculators.
func NewProgressState(numCalculators int) *ProgressState {
	return &ProgressState{progresses: make([]float64, numCalculators)}
}

// Update records value for calculator index. Out-of-range indices are ignored.
func (ps *ProgressState) Update(index int, value float64) {
	if index >= 0 && index < len(ps.progresses) {
		ps.progresses[index] = value
	}
}

// CalculateAverage returns the mean progress, 0 when nothing is tracked.
func (ps *ProgressState) CalculateAverage() float64 {
	if len(ps.progresses) == 0 {
		return 0
	}
	var total float64
	for _, p := range ps.progresses {
		total += p
	}
	return total / float64(len(ps.progresses))
}

// Done returns how many calculators have reported completion.
func (ps *ProgressState) Done() int {
	done := 0
	for _, p := range ps.progresses {
		if p >= 1 {
			done++
		}
	}
	return done
}

func progressBar(progress float64, length int) string {
	progress = min(max(progress, 0), 1)
	count := int(progress * float64(length))
	return strings.Repeat("█", count) + strings.Repeat("░", length-count)
}

// DisplayProgress shows a spinner with a progress bar until progressChan is
// closed, then prints the final line. It is meant to run in its own
// goroutine and calls wg.Done on return.
func DisplayProgress(wg *sync.WaitGroup, progressChan <-chan fibonacci.ProgressUpdate, numCalculators int, out io.Writer) {
	defer wg.Done()
	if numCalculators <= 0 {
		for range progressChan {
		}
		return
	}

	state := NewProgressState(numCalculators)
	s := newSpinner(spinner.WithWriter(out))
	s.Start()

	ticker := time.NewTicker(ProgressRefreshRate)
	defer ticker.Stop()

	for {
		select {
		case update, ok := <-progressChan:
			if !ok {
				s.Stop()
				fmt.Fprintf(out, "Progress: %6.2f%% [%s] %d/%d done\n", 100.0, progressBar(1, ProgressBarWidth), numCalculators, numCalculators)
				return
			}
			state.Update(update.CalculatorIndex, update.Value)
		case <-ticker.C:
			avg := state.CalculateAverage()
			s.UpdateSuffix(fmt.Sprintf(" Progress: %6.2f%% [%s] %d/%d done", avg*100, progressBar(avg, ProgressBarWidth), state.Done(), numCalculators))
		}
	}
}

// DisplayResult prints the pair, its public values and, with details, the
// operation counts of the run.
func DisplayResult(res fibonacci.Result, duration time.Duration, details bool, out io.Writer) {
	fmt.Fprintf(out, "\nF(%s%d%s) = %s%d%s, F(%s%d%s) = %s%d%s (mod 2^32)\n",
		ui.ColorMagenta(), res.N, ui.ColorReset(), ui.ColorGreen(), res.Pair.A, ui.ColorReset(),
		ui.ColorMagenta(), uint64(res.N)+1, ui.ColorReset(), ui.ColorGreen(), res.Pair.B, ui.ColorReset())

	pv := publicvalues.New(res.N, res.Pair)
	if encoded, err := pv.Hex(); err == nil {
		fmt.Fprintf(out, "Public values : %s%s%s\n", ui.ColorCyan(), encoded, ui.ColorReset())
	}
	if digest, err := pv.Digest(); err == nil {
		fmt.Fprintf(out, "Digest        : %s%s%s\n", ui.ColorCyan(), digest.Hex(), ui.ColorReset())
	}

	if !details {
		return
	}
	durationStr := FormatExecutionDuration(duration)
	if duration == 0 {
		durationStr = "< 1µs"
	}
	fmt.Fprintf(out, "\n%s--- Operation counts ---%s\n", ui.ColorBold(), ui.ColorReset())
	fmt.Fprintf(out, "Calculation time : %s%s%s\n", ui.ColorGreen(), durationStr, ui.ColorReset())
	rows := []struct {
		label string
		value uint64
	}{
		{"Calls", res.Ops.Calls},
		{"Additions", res.Ops.Additions},
		{"Multiplications", res.Ops.Multiplications},
		{"Cache lookups", res.Ops.CacheLookups},
		{"Cache hits", res.Ops.CacheHits},
		{"Cache inserts", res.Ops.CacheInserts},
	}
	for _, r := range rows {
		fmt.Fprintf(out, "%-16s : %s%s%s\n", r.label, ui.ColorCyan(), formatNumberString(strconv.FormatUint(r.value, 10)), ui.ColorReset())
	}
}

// formatNumberString inserts thousands separators into a decimal string.
func formatNumberString(s string) string {
	if s == "" {
		return ""
	}
	prefix := ""
	if s[0] == '-' {
		prefix = "-"
		s = s[1:]
	}
	n := len(s)
	if n <= 3 {
		return prefix + s
	}

	var builder strings.Builder
	builder.Grow(len(prefix) + n + (n-1)/3)
	builder.WriteString(prefix)

	firstGroupLen := n % 3
	if firstGroupLen == 0 {
		firstGroupLen = 3
	}
	builder.WriteString(s[:firstGroupLen])
	for i := firstGroupLen; i < n; i += 3 {
		builder.WriteByte(',')
		builder.WriteString(s[i : i+3])
	}
	return builder.String()
}
