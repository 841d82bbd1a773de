// Package fibonacci computes Fibonacci pairs (F(n), F(n+1)) under 32-bit
// wraparound arithmetic with four interchangeable algorithms: iterative,
// naive recursive, memoized recursive and matrix power.
//
// The algorithms are pure functions (Iterative, Recursive, Memoized,
// MatrixPower). The Calculator interface wraps them for the application
// layers, adding operation counting, metrics, tracing and progress reporting
// without touching the numeric core.
package fibonacci

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	calculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zkfib_calculations_total",
			Help: "The total number of Fibonacci calculations processed",
		},
		[]string{"algorithm", "status"},
	)
	calculationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zkfib_calculation_duration_seconds",
			Help:    "The duration of Fibonacci calculations in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 14),
		},
		[]string{"algorithm"},
	)
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zkfib_operations_total",
			Help: "Primitive operations executed by Fibonacci calculations",
		},
		[]string{"algorithm", "kind"},
	)
)

// Result is the outcome of one calculation: the index, the Fibonacci pair and
// the operations it took to compute it.
type Result struct {
	N    uint32   `json:"n"`
	Pair Pair     `json:"pair"`
	Ops  OpCounts `json:"ops"`
}

// Calculator is the interface used by the orchestration, service and server
// layers to run an algorithm.
type Calculator interface {
	// Calculate computes the pair for n. The numeric core cannot be
	// interrupted; ctx is only checked before the calculation starts.
	// Progress updates are sent to progressChan when it is non-nil.
	Calculate(ctx context.Context, progressChan chan<- ProgressUpdate, calcIndex int, n uint32) (Result, error)

	// Name returns the display name of the algorithm.
	Name() string
}

// CoreCalculator is implemented by the pure algorithms. CalculateCore must
// record its operations into ops, which may be nil.
type CoreCalculator interface {
	CalculateCore(n uint32, ops *OpCounts) Pair
	Name() string
}

// FibCalculator decorates a CoreCalculator with the cross-cutting concerns:
// operation counting, Prometheus metrics, an OpenTelemetry span, debug
// logging and progress reporting through a ProgressSubject.
type FibCalculator struct {
	core CoreCalculator
}

// NewCalculator wraps core in a FibCalculator. It panics if core is nil.
func NewCalculator(core CoreCalculator) Calculator {
	if core == nil {
		panic("fibonacci: nil CoreCalculator")
	}
	return &FibCalculator{core: core}
}

// Name returns the name of the wrapped algorithm.
func (c *FibCalculator) Name() string {
	return c.core.Name()
}

// Calculate runs the wrapped algorithm for n. Progress goes to progressChan
// when it is non-nil, to the debug log and to the progress gauge.
//
// If ctx is already done the calculation is not started and ctx.Err() is
// returned. Otherwise the call runs to completion; the result never depends on
// anything but n.
func (c *FibCalculator) Calculate(ctx context.Context, progressChan chan<- ProgressUpdate, calcIndex int, n uint32) (Result, error) {
	subject := NewProgressSubject()
	if progressChan != nil {
		subject.Register(NewChannelObserver(progressChan))
	}
	subject.Register(NewLoggingObserver(log.Logger.With().Str("algo", c.core.Name()).Logger(), 0))
	subject.Register(NewMetricsObserver(c.core.Name()))
	return c.CalculateWithObservers(ctx, subject, calcIndex, n)
}

// CalculateWithObservers is Calculate with progress sent to the observers of
// subject instead. subject may be nil.
func (c *FibCalculator) CalculateWithObservers(ctx context.Context, subject *ProgressSubject, calcIndex int, n uint32) (result Result, err error) {
	ctx, span := otel.Tracer("fibonacci").Start(ctx, "Calculate")
	defer span.End()

	algoName := c.core.Name()
	span.SetAttributes(
		attribute.String("algorithm", algoName),
		attribute.Int64("n", int64(n)),
	)

	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
		}
		calculationsTotal.WithLabelValues(algoName, status).Inc()
		calculationDuration.WithLabelValues(algoName).Observe(duration)

		log.Debug().
			Str("algo", algoName).
			Uint32("n", n).
			Float64("duration", duration).
			Uint64("calls", result.Ops.Calls).
			Uint64("arith", result.Ops.Arithmetic()).
			Str("status", status).
			Msg("calculation completed")
	}()

	if err := ctx.Err(); err != nil {
		return Result{N: n}, err
	}

	reporter := subject.AsProgressReporter(calcIndex)
	reporter(0)

	var ops OpCounts
	pair := c.core.CalculateCore(n, &ops)
	for kind, v := range ops.Kinds() {
		if v > 0 {
			operationsTotal.WithLabelValues(algoName, kind).Add(float64(v))
		}
	}

	reporter(1)
	return Result{N: n, Pair: pair, Ops: ops}, nil
}
