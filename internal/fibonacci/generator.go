package fibonacci

import "context"

// skipStepLimit is the largest forward jump Skip takes by stepping the
// recurrence instead of asking the calculator.
const skipStepLimit = 64

// SequenceGenerator produces consecutive terms F(0), F(1), ... mod 2^32.
// Unlike Calculator, which computes a single pair, it keeps its position
// between calls so a run of terms costs one addition each.
//
//	gen := fibonacci.NewIterativeGenerator()
//	for range 100 {
//	    v, err := gen.Next(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    // use v
//	}
type SequenceGenerator interface {
	// Next advances the generator and returns the new current term. The
	// first call returns F(0). It returns ctx.Err() if ctx is done.
	Next(ctx context.Context) (uint32, error)

	// Current returns the current term without advancing. ok is false
	// before the first Next or Skip.
	Current() (value uint32, ok bool)

	// Index returns the index of the current term, 0 before the first call.
	Index() uint64

	// Reset returns the generator to its initial state; the next call to
	// Next returns F(0).
	Reset()

	// Skip moves the generator to index n and returns F(n) mod 2^32.
	Skip(ctx context.Context, n uint32) (uint32, error)
}

// IterativeGenerator is a SequenceGenerator that steps the recurrence on
// Next and delegates long jumps to a Calculator. It is not safe for
// concurrent use.
type IterativeGenerator struct {
	calc    Calculator
	pair    Pair
	index   uint64
	started bool
}

var _ SequenceGenerator = (*IterativeGenerator)(nil)

// NewIterativeGenerator returns a generator that jumps with the matrix
// algorithm.
func NewIterativeGenerator() *IterativeGenerator {
	return NewIterativeGeneratorWithCalculator(NewCalculator(MatrixAlgorithm{}))
}

// NewIterativeGeneratorWithCalculator returns a generator that jumps with
// calc. A nil calc selects the matrix algorithm.
func NewIterativeGeneratorWithCalculator(calc Calculator) *IterativeGenerator {
	if calc == nil {
		calc = NewCalculator(MatrixAlgorithm{})
	}
	return &IterativeGenerator{calc: calc}
}

// Next implements SequenceGenerator.
func (g *IterativeGenerator) Next(ctx context.Context) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !g.started {
		g.pair = Pair{A: 0, B: 1}
		g.index = 0
		g.started = true
		return g.pair.A, nil
	}
	g.pair = g.pair.next(nil)
	g.index++
	return g.pair.A, nil
}

// Current implements SequenceGenerator.
func (g *IterativeGenerator) Current() (uint32, bool) {
	return g.pair.A, g.started
}

// Index implements SequenceGenerator.
func (g *IterativeGenerator) Index() uint64 {
	return g.index
}

// Reset implements SequenceGenerator.
func (g *IterativeGenerator) Reset() {
	g.pair = Pair{}
	g.index = 0
	g.started = false
}

// Skip implements SequenceGenerator. Short forward jumps from the current
// position step the recurrence; anything else runs the calculator once.
func (g *IterativeGenerator) Skip(ctx context.Context, n uint32) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	target := uint64(n)
	if g.started && target >= g.index && target-g.index <= skipStepLimit {
		for g.index < target {
			g.pair = g.pair.next(nil)
			g.index++
		}
		return g.pair.A, nil
	}

	res, err := g.calc.Calculate(ctx, nil, 0, n)
	if err != nil {
		return 0, err
	}
	g.pair = res.Pair
	g.index = target
	g.started = true
	return g.pair.A, nil
}
