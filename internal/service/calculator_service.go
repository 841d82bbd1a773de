// Package service is the calculation entry point shared by the HTTP server
// and the CLI. It validates requests, consults the record cache and runs
// the registered calculators.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/agbru/zkfib/internal/errors"
	"github.com/agbru/zkfib/internal/fibonacci"
	"github.com/agbru/zkfib/internal/logging"
	"github.com/agbru/zkfib/internal/publicvalues"
	"github.com/agbru/zkfib/internal/store"
)

var (
	// ErrRecursionLimit is returned when n exceeds the configured limit for
	// a recursive algorithm.
	ErrRecursionLimit = errors.New("n exceeds the recursion limit")
	// ErrIndexLimit is returned when n exceeds the limit shared by every
	// algorithm.
	ErrIndexLimit = errors.New("n exceeds the index limit")
)

// MaxSequenceCount is the largest number of terms Sequence returns at once.
const MaxSequenceCount = 10_000

// Limits bounds the indices a service accepts. A calculation cannot be
// interrupted once started, so these limits are what bound its duration.
type Limits struct {
	// MaxN caps n for every algorithm. Zero disables the cap.
	MaxN uint32
	// MaxRecursiveN caps n for the recursive algorithms. Values outside
	// [1, fibonacci.MaxRecursionDepth] are replaced by the ceiling.
	MaxRecursiveN uint32
}

// Outcome is the result of one calculation together with its public values.
type Outcome struct {
	Algorithm    string                     `json:"algorithm"`
	Result       fibonacci.Result           `json:"result"`
	PublicValues publicvalues.PublicValues `json:"public_values"`
	Duration     time.Duration              `json:"duration"`
	// Cached is set when the record came from the cache. Result.Ops is
	// zero in that case.
	Cached bool `json:"cached"`
}

// Comparison is the outcome of running every algorithm for the same n.
type Comparison struct {
	N        uint32    `json:"n"`
	Outcomes []Outcome `json:"outcomes"`
	// Skipped lists algorithms not run because n exceeds their limit.
	Skipped    []string `json:"skipped,omitempty"`
	Consistent bool     `json:"consistent"`
}

// Sequence is a run of consecutive terms F(Start), F(Start+1), ... mod 2^32.
type Sequence struct {
	Start  uint32   `json:"start"`
	Values []uint32 `json:"values"`
}

// Service is the interface used by the transport layers.
type Service interface {
	Calculate(ctx context.Context, algoName string, n uint32) (Outcome, error)
	Compare(ctx context.Context, n uint32) (Comparison, error)
	Verify(ctx context.Context, pv publicvalues.PublicValues) error
	Sequence(ctx context.Context, start, count uint32) (Sequence, error)
	Algorithms() []string
}

// CalculatorService implements Service on a calculator factory and a record
// cache.
type CalculatorService struct {
	factory fibonacci.CalculatorFactory
	store   store.Store
	limits  Limits
	logger  logging.Logger
}

var _ Service = (*CalculatorService)(nil)

// NewCalculatorService creates a service. st and logger may be nil.
func NewCalculatorService(factory fibonacci.CalculatorFactory, st store.Store, limits Limits, logger logging.Logger) *CalculatorService {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	limits.MaxRecursiveN = fibonacci.RecursionLimit(limits.MaxRecursiveN)
	return &CalculatorService{
		factory: factory,
		store:   st,
		limits:  limits,
		logger:  logger,
	}
}

// Algorithms returns the registered algorithm names.
func (s *CalculatorService) Algorithms() []string {
	return s.factory.List()
}

// Limits returns the effective limits.
func (s *CalculatorService) Limits() Limits {
	return s.limits
}

// CheckLimit returns ErrIndexLimit or ErrRecursionLimit, wrapped in a
// ValidationError, if n is too large for algoName.
func (s *CalculatorService) CheckLimit(algoName string, n uint32) error {
	if err := s.checkIndex(n); err != nil {
		return err
	}
	if n > s.limits.MaxRecursiveN && fibonacci.IsRecursive(algoName) {
		return fmt.Errorf("%w: %w", apperrors.NewValidationError("n",
			fmt.Sprintf("must be at most %d for algorithm '%s'", s.limits.MaxRecursiveN, algoName), n), ErrRecursionLimit)
	}
	return nil
}

func (s *CalculatorService) checkIndex(n uint32) error {
	if s.limits.MaxN > 0 && n > s.limits.MaxN {
		return fmt.Errorf("%w: %w", apperrors.NewValidationError("n",
			fmt.Sprintf("must be at most %d", s.limits.MaxN), n), ErrIndexLimit)
	}
	return nil
}

// Calculate returns the pair for n computed by algoName, serving it from
// the cache when possible.
func (s *CalculatorService) Calculate(ctx context.Context, algoName string, n uint32) (Outcome, error) {
	if err := s.CheckLimit(algoName, n); err != nil {
		return Outcome{}, err
	}
	calc, err := s.factory.Get(algoName)
	if err != nil {
		return Outcome{}, err
	}

	if s.store != nil {
		start := time.Now()
		pv, ok, err := s.store.Get(ctx, algoName, n)
		switch {
		case err != nil:
			s.logger.Warn("record cache read failed", logging.String("algo", algoName), logging.Uint32("n", n), logging.Err(err))
		case ok:
			return Outcome{
				Algorithm:    algoName,
				Result:       fibonacci.Result{N: n, Pair: pv.Pair()},
				PublicValues: pv,
				Duration:     time.Since(start),
				Cached:       true,
			}, nil
		}
	}

	out, err := s.run(ctx, algoName, calc, n)
	if err != nil {
		return Outcome{}, err
	}

	if s.store != nil {
		if err := s.store.Put(ctx, algoName, out.PublicValues); err != nil {
			s.logger.Warn("record cache write failed", logging.String("algo", algoName), logging.Uint32("n", n), logging.Err(err))
		}
	}
	return out, nil
}

func (s *CalculatorService) run(ctx context.Context, algoName string, calc fibonacci.Calculator, n uint32) (Outcome, error) {
	start := time.Now()
	res, err := calc.Calculate(ctx, nil, 0, n)
	if err != nil {
		return Outcome{}, apperrors.CalculationError{Algorithm: algoName, Cause: err}
	}
	return Outcome{
		Algorithm:    algoName,
		Result:       res,
		PublicValues: publicvalues.New(n, res.Pair),
		Duration:     time.Since(start),
	}, nil
}

// Compare runs every registered algorithm concurrently, bypassing the cache,
// and reports whether they agree. n above the index limit is rejected;
// algorithms over their recursion limit are skipped. A disagreement is
// reported through Consistent, not as an error.
func (s *CalculatorService) Compare(ctx context.Context, n uint32) (Comparison, error) {
	if err := s.checkIndex(n); err != nil {
		return Comparison{}, err
	}
	cmp := Comparison{N: n, Consistent: true}
	var names []string
	for _, name := range s.factory.List() {
		if s.CheckLimit(name, n) != nil {
			cmp.Skipped = append(cmp.Skipped, name)
			continue
		}
		names = append(names, name)
	}

	outcomes := make([]Outcome, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			calc, err := s.factory.Get(name)
			if err != nil {
				return err
			}
			out, err := s.run(gctx, name, calc, n)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}

	cmp.Outcomes = outcomes
	for _, o := range outcomes[min(1, len(outcomes)):] {
		if o.Result.Pair != outcomes[0].Result.Pair {
			cmp.Consistent = false
			s.logger.Error("algorithms disagree", apperrors.MismatchError{
				N: uint64(n), Algorithm: o.Algorithm,
				Expected: outcomes[0].Result.Pair.String(), Got: o.Result.Pair.String(),
			})
		}
	}
	return cmp, nil
}

// Verify checks a decoded record against the iterative reference.
func (s *CalculatorService) Verify(_ context.Context, pv publicvalues.PublicValues) error {
	return publicvalues.Verify(pv)
}

// Sequence returns count consecutive terms starting at F(start). count must
// lie in [1, MaxSequenceCount] and the last index must not exceed the index
// limit or 2^32-1.
func (s *CalculatorService) Sequence(ctx context.Context, start, count uint32) (Sequence, error) {
	if count == 0 || count > MaxSequenceCount {
		return Sequence{}, apperrors.NewValidationError("count",
			fmt.Sprintf("must be between 1 and %d", MaxSequenceCount), count)
	}
	last := uint64(start) + uint64(count) - 1
	if last > math.MaxUint32 {
		return Sequence{}, apperrors.NewValidationError("count",
			fmt.Sprintf("start+count-1 must be at most %d", uint32(math.MaxUint32)), count)
	}
	if err := s.checkIndex(uint32(last)); err != nil {
		return Sequence{}, err
	}

	gen := fibonacci.NewIterativeGenerator()
	first, err := gen.Skip(ctx, start)
	if err != nil {
		return Sequence{}, err
	}
	seq := Sequence{Start: start, Values: make([]uint32, 0, count)}
	seq.Values = append(seq.Values, first)
	for range count - 1 {
		v, err := gen.Next(ctx)
		if err != nil {
			return Sequence{}, err
		}
		seq.Values = append(seq.Values, v)
	}
	return seq, nil
}
