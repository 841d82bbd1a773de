package fibonacci

import (
	"context"
	"sort"
)

// MockCalculator is a Calculator test double. It is exported so that tests in
// other packages can use it.
type MockCalculator struct {
	// NameValue is returned by Name; "mock" when empty.
	NameValue string
	Result    Result
	Err       error
	Fn        func(ctx context.Context, n uint32) (Result, error)
}

// Name returns the calculator name.
func (m *MockCalculator) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

// Calculate returns the configured Result and Err, or calls Fn if set.
func (m *MockCalculator) Calculate(ctx context.Context, progressChan chan<- ProgressUpdate, calcIndex int, n uint32) (Result, error) {
	if m.Fn != nil {
		return m.Fn(ctx, n)
	}
	if progressChan != nil {
		progressChan <- ProgressUpdate{CalculatorIndex: calcIndex, Value: 1.0}
	}
	return m.Result, m.Err
}

// TestFactory is a CalculatorFactory backed by a fixed set of calculators.
type TestFactory struct {
	calculators map[string]Calculator
}

// NewTestFactory returns a factory serving the given calculators.
func NewTestFactory(calculators map[string]Calculator) *TestFactory {
	if calculators == nil {
		calculators = make(map[string]Calculator)
	}
	return &TestFactory{calculators: calculators}
}

// Create returns the calculator by name.
func (f *TestFactory) Create(name string) (Calculator, error) {
	return f.Get(name)
}

// Get returns the calculator by name.
func (f *TestFactory) Get(name string) (Calculator, error) {
	calc, ok := f.calculators[name]
	if !ok {
		return nil, &UnknownCalculatorError{Name: name}
	}
	return calc, nil
}

// List returns the calculator names in sorted order.
func (f *TestFactory) List() []string {
	names := make([]string, 0, len(f.calculators))
	for name := range f.calculators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register is a no-op; calculators are fixed at construction.
func (f *TestFactory) Register(name string, creator func() CoreCalculator) error {
	return nil
}

// GetAll returns all calculators.
func (f *TestFactory) GetAll() map[string]Calculator {
	result := make(map[string]Calculator, len(f.calculators))
	for k, v := range f.calculators {
		result[k] = v
	}
	return result
}
