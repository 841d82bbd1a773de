package fibonacci

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestFibCalculator_Name(t *testing.T) {
	t.Parallel()

	cores := []CoreCalculator{
		IterativeAlgorithm{},
		RecursiveAlgorithm{},
		MemoizedAlgorithm{},
		MatrixAlgorithm{},
	}
	for _, core := range cores {
		calc := NewCalculator(core)
		if calc.Name() != core.Name() {
			t.Errorf("Name() = %q, want %q", calc.Name(), core.Name())
		}
	}
}

func TestNewCalculator_NilPanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewCalculator(nil) should panic")
		}
	}()
	NewCalculator(nil)
}

func TestFibCalculator_Calculate(t *testing.T) {
	t.Parallel()

	t.Run("returns pair and operation counts", func(t *testing.T) {
		t.Parallel()
		calc := NewCalculator(MatrixAlgorithm{})
		res, err := calc.Calculate(context.Background(), nil, 0, 10)
		if err != nil {
			t.Fatalf("Calculate() error = %v", err)
		}
		if res.N != 10 || res.Pair != (Pair{A: 55, B: 89}) {
			t.Errorf("Calculate() = %+v, want n=10 pair (55, 89)", res)
		}
		if res.Ops.Calls != 11 || res.Ops.Multiplications != 80 {
			t.Errorf("Ops = %+v, want 11 calls and 80 multiplications", res.Ops)
		}
	})

	t.Run("canceled context is not started", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		progress := make(chan ProgressUpdate, 4)
		res, err := NewCalculator(IterativeAlgorithm{}).Calculate(ctx, progress, 0, 10)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Calculate() error = %v, want context.Canceled", err)
		}
		if res.Ops.Calls != 0 {
			t.Errorf("no work should be recorded, got %+v", res.Ops)
		}
		if len(progress) != 0 {
			t.Errorf("no progress should be reported, got %d updates", len(progress))
		}
	})

	t.Run("reports start and completion", func(t *testing.T) {
		t.Parallel()
		progress := make(chan ProgressUpdate, 4)
		if _, err := NewCalculator(MemoizedAlgorithm{}).Calculate(context.Background(), progress, 2, 30); err != nil {
			t.Fatalf("Calculate() error = %v", err)
		}
		close(progress)

		var values []float64
		for u := range progress {
			if u.CalculatorIndex != 2 {
				t.Errorf("CalculatorIndex = %d, want 2", u.CalculatorIndex)
			}
			values = append(values, u.Value)
		}
		if len(values) != 2 || values[0] != 0 || values[1] != 1 {
			t.Errorf("progress values = %v, want [0 1]", values)
		}
	})

	t.Run("full progress channel does not block", func(t *testing.T) {
		t.Parallel()
		progress := make(chan ProgressUpdate) // unbuffered, never read
		if _, err := NewCalculator(RecursiveAlgorithm{}).Calculate(context.Background(), progress, 0, 20); err != nil {
			t.Fatalf("Calculate() error = %v", err)
		}
	})
}

func TestCalculateWithObservers(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(MatrixAlgorithm{}).(*FibCalculator)
	subject := NewProgressSubject()
	observer := newRecordingObserver()
	subject.Register(observer)

	res, err := calc.CalculateWithObservers(context.Background(), subject, 3, 48)
	if err != nil {
		t.Fatalf("CalculateWithObservers() error = %v", err)
	}
	if res.Pair != (Pair{A: 512559680, B: 3483774753}) {
		t.Errorf("Pair = %v", res.Pair)
	}
	want := []ProgressUpdate{{CalculatorIndex: 3, Value: 0}, {CalculatorIndex: 3, Value: 1}}
	if got := observer.snapshot(); !slices.Equal(got, want) {
		t.Errorf("observer saw %v, want %v", got, want)
	}

	if _, err := calc.CalculateWithObservers(context.Background(), nil, 0, 10); err != nil {
		t.Errorf("a nil subject must be accepted, got %v", err)
	}
}
