package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/agbru/zkfib/internal/errors"
	"github.com/agbru/zkfib/internal/fibonacci"
	"github.com/agbru/zkfib/internal/publicvalues"
	"github.com/agbru/zkfib/internal/store"
)

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string, uint32) (publicvalues.PublicValues, bool, error) {
	return publicvalues.PublicValues{}, false, errors.New("cache down")
}
func (failingStore) Put(context.Context, string, publicvalues.PublicValues) error {
	return errors.New("cache down")
}
func (failingStore) Close() error { return nil }

func TestCalculate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewCalculatorService(fibonacci.NewDefaultFactory(), nil, Limits{}, nil)

	for _, algo := range svc.Algorithms() {
		out, err := svc.Calculate(ctx, algo, 48)
		require.NoError(t, err, algo)
		assert.Equal(t, algo, out.Algorithm)
		assert.Equal(t, fibonacci.Pair{A: 512559680, B: 3483774753}, out.Result.Pair)
		assert.Equal(t, publicvalues.PublicValues{N: 48, A: 512559680, B: 3483774753}, out.PublicValues)
		assert.NotZero(t, out.Result.Ops.Calls)
		assert.False(t, out.Cached)
	}
}

func TestCalculateUnknownAlgorithm(t *testing.T) {
	t.Parallel()
	svc := NewCalculatorService(fibonacci.NewDefaultFactory(), nil, Limits{}, nil)
	_, err := svc.Calculate(context.Background(), "doubling", 1)
	var unknown *fibonacci.UnknownCalculatorError
	assert.True(t, errors.As(err, &unknown))
}

func TestCalculateRecursionLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewCalculatorService(fibonacci.NewDefaultFactory(), nil, Limits{MaxRecursiveN: 100}, nil)

	for _, algo := range []string{fibonacci.AlgoRecursive, fibonacci.AlgoMemoized} {
		_, err := svc.Calculate(ctx, algo, 101)
		assert.ErrorIs(t, err, ErrRecursionLimit, algo)
		var verr apperrors.ValidationError
		assert.True(t, errors.As(err, &verr), algo)

		_, err = svc.Calculate(ctx, algo, 100)
		assert.NoError(t, err, algo)
	}
	for _, algo := range []string{fibonacci.AlgoIterative, fibonacci.AlgoMatrix} {
		_, err := svc.Calculate(ctx, algo, 1_000)
		assert.NoError(t, err, algo)
	}
}

func TestCalculateIndexLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewCalculatorService(fibonacci.NewDefaultFactory(), nil, Limits{MaxN: 1_000, MaxRecursiveN: 100}, nil)

	for _, algo := range svc.Algorithms() {
		_, err := svc.Calculate(ctx, algo, 1_001)
		assert.ErrorIs(t, err, ErrIndexLimit, algo)
		var verr apperrors.ValidationError
		assert.True(t, errors.As(err, &verr), algo)
	}
	_, err := svc.Calculate(ctx, fibonacci.AlgoMatrix, 1_000)
	assert.NoError(t, err)

	_, err = svc.Compare(ctx, 1_001)
	assert.ErrorIs(t, err, ErrIndexLimit)
}

func TestRecursionLimitHasACeiling(t *testing.T) {
	t.Parallel()
	for _, configured := range []uint32{0, fibonacci.MaxRecursionDepth + 1, ^uint32(0)} {
		svc := NewCalculatorService(fibonacci.NewDefaultFactory(), nil, Limits{MaxRecursiveN: configured}, nil)
		assert.Equal(t, fibonacci.MaxRecursionDepth, svc.Limits().MaxRecursiveN)
		err := svc.CheckLimit(fibonacci.AlgoRecursive, fibonacci.MaxRecursionDepth+1)
		assert.ErrorIs(t, err, ErrRecursionLimit, "configured=%d", configured)
		assert.NoError(t, svc.CheckLimit(fibonacci.AlgoIterative, fibonacci.MaxRecursionDepth+1))
	}
}

func TestCalculateUsesCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemoryStore(16)
	svc := NewCalculatorService(fibonacci.NewDefaultFactory(), st, Limits{}, nil)

	first, err := svc.Calculate(ctx, fibonacci.AlgoMatrix, 30)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, st.Len())

	second, err := svc.Calculate(ctx, fibonacci.AlgoMatrix, 30)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.PublicValues, second.PublicValues)
	assert.Equal(t, first.Result.Pair, second.Result.Pair)
	assert.Zero(t, second.Result.Ops)
}

func TestCalculateCacheFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	svc := NewCalculatorService(fibonacci.NewDefaultFactory(), failingStore{}, Limits{}, nil)
	out, err := svc.Calculate(context.Background(), fibonacci.AlgoIterative, 10)
	require.NoError(t, err)
	assert.Equal(t, fibonacci.Pair{A: 55, B: 89}, out.Result.Pair)
}

func TestCalculateError(t *testing.T) {
	t.Parallel()
	factory := fibonacci.NewTestFactory(map[string]fibonacci.Calculator{
		"broken": &fibonacci.MockCalculator{Err: context.DeadlineExceeded},
	})
	svc := NewCalculatorService(factory, store.NewMemoryStore(4), Limits{}, nil)
	_, err := svc.Calculate(context.Background(), "broken", 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var calcErr apperrors.CalculationError
	require.True(t, errors.As(err, &calcErr))
	assert.Equal(t, "broken", calcErr.Algorithm)
}

func TestCompare(t *testing.T) {
	t.Parallel()
	svc := NewCalculatorService(fibonacci.NewDefaultFactory(), nil, Limits{MaxRecursiveN: 50}, nil)

	cmp, err := svc.Compare(context.Background(), 40)
	require.NoError(t, err)
	assert.True(t, cmp.Consistent)
	assert.Len(t, cmp.Outcomes, 4)
	assert.Empty(t, cmp.Skipped)

	cmp, err = svc.Compare(context.Background(), 60)
	require.NoError(t, err)
	assert.True(t, cmp.Consistent)
	assert.Len(t, cmp.Outcomes, 2)
	assert.ElementsMatch(t, []string{fibonacci.AlgoMemoized, fibonacci.AlgoRecursive}, cmp.Skipped)
}

func TestCompareDetectsMismatch(t *testing.T) {
	t.Parallel()
	factory := fibonacci.NewTestFactory(map[string]fibonacci.Calculator{
		"a": &fibonacci.MockCalculator{Result: fibonacci.Result{N: 5, Pair: fibonacci.Pair{A: 5, B: 8}}},
		"b": &fibonacci.MockCalculator{Result: fibonacci.Result{N: 5, Pair: fibonacci.Pair{A: 5, B: 9}}},
	})
	cmp, err := NewCalculatorService(factory, nil, Limits{}, nil).Compare(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, cmp.Consistent)
}

func TestCompareCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCalculatorService(fibonacci.NewDefaultFactory(), nil, Limits{}, nil).Compare(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerify(t *testing.T) {
	t.Parallel()
	svc := NewCalculatorService(fibonacci.NewDefaultFactory(), nil, Limits{}, nil)
	assert.NoError(t, svc.Verify(context.Background(), publicvalues.New(12, fibonacci.Iterative(12))))

	err := svc.Verify(context.Background(), publicvalues.PublicValues{N: 12, A: 1, B: 2})
	var mismatch apperrors.MismatchError
	assert.True(t, errors.As(err, &mismatch))
}

func TestSequence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewCalculatorService(fibonacci.NewDefaultFactory(), nil, Limits{MaxN: 1_000}, nil)

	seq, err := svc.Sequence(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, Sequence{Start: 0, Values: []uint32{0, 1, 1, 2, 3, 5, 8, 13, 21, 34}}, seq)

	seq, err = svc.Sequence(ctx, 46, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1836311903, 2971215073, 512559680}, seq.Values)

	seq, err = svc.Sequence(ctx, 1_000, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{fibonacci.Iterative(1_000).A}, seq.Values)
}

func TestSequenceRejectsBadRanges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	limited := NewCalculatorService(fibonacci.NewDefaultFactory(), nil, Limits{MaxN: 1_000}, nil)
	unlimited := NewCalculatorService(fibonacci.NewDefaultFactory(), nil, Limits{}, nil)

	tests := []struct {
		name         string
		svc          *CalculatorService
		start, count uint32
		indexLimit   bool
	}{
		{"zero count", limited, 0, 0, false},
		{"count too large", unlimited, 0, MaxSequenceCount + 1, false},
		{"past the index limit", limited, 995, 10, true},
		{"past the last index", unlimited, ^uint32(0), 2, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := tc.svc.Sequence(ctx, tc.start, tc.count)
			var verr apperrors.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.indexLimit, errors.Is(err, ErrIndexLimit))
		})
	}

	seq, err := unlimited.Sequence(ctx, ^uint32(0), 1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{fibonacci.MatrixPower(^uint32(0)).A}, seq.Values)
}

func TestSequenceCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCalculatorService(fibonacci.NewDefaultFactory(), nil, Limits{}, nil).Sequence(ctx, 0, 5)
	assert.ErrorIs(t, err, context.Canceled)
}
