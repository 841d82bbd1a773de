package fibonacci

import (
	"fmt"
	"sort"
	"sync"
)

// Registered algorithm names.
const (
	AlgoIterative = "iterative"
	AlgoRecursive = "recursive"
	AlgoMemoized  = "memoized"
	AlgoMatrix    = "matrix"
)

// CalculatorFactory creates and caches Calculator instances by name.
type CalculatorFactory interface {
	// Create returns a fresh Calculator for name.
	Create(name string) (Calculator, error)
	// Get returns a cached Calculator for name, creating it on first use.
	Get(name string) (Calculator, error)
	// List returns the registered names in sorted order.
	List() []string
	// Register adds or replaces a calculator type.
	Register(name string, creator func() CoreCalculator) error
	// GetAll returns every registered calculator keyed by name.
	GetAll() map[string]Calculator
}

// DefaultFactory is the thread-safe CalculatorFactory used by the application.
type DefaultFactory struct {
	mu          sync.RWMutex
	creators    map[string]func() CoreCalculator
	calculators map[string]Calculator
}

// NewDefaultFactory returns a factory with the four algorithms registered
// under AlgoIterative, AlgoRecursive, AlgoMemoized and AlgoMatrix.
func NewDefaultFactory() *DefaultFactory {
	f := &DefaultFactory{
		creators:    make(map[string]func() CoreCalculator),
		calculators: make(map[string]Calculator),
	}

	_ = f.Register(AlgoIterative, func() CoreCalculator { return IterativeAlgorithm{} })
	_ = f.Register(AlgoRecursive, func() CoreCalculator { return RecursiveAlgorithm{} })
	_ = f.Register(AlgoMemoized, func() CoreCalculator { return MemoizedAlgorithm{} })
	_ = f.Register(AlgoMatrix, func() CoreCalculator { return MatrixAlgorithm{} })

	return f
}

// Register adds a calculator type. An existing registration with the same
// name is replaced and its cached instance dropped.
func (f *DefaultFactory) Register(name string, creator func() CoreCalculator) error {
	if creator == nil {
		return fmt.Errorf("fibonacci: nil creator for calculator %q", name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creators[name] = creator
	delete(f.calculators, name)
	return nil
}

// Create returns a new, uncached Calculator.
func (f *DefaultFactory) Create(name string) (Calculator, error) {
	f.mu.RLock()
	creator, ok := f.creators[name]
	f.mu.RUnlock()

	if !ok {
		return nil, &UnknownCalculatorError{Name: name}
	}
	return NewCalculator(creator()), nil
}

// Get returns the cached Calculator for name, creating it if needed.
func (f *DefaultFactory) Get(name string) (Calculator, error) {
	f.mu.RLock()
	if calc, exists := f.calculators[name]; exists {
		f.mu.RUnlock()
		return calc, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring the write lock.
	if calc, exists := f.calculators[name]; exists {
		return calc, nil
	}

	creator, ok := f.creators[name]
	if !ok {
		return nil, &UnknownCalculatorError{Name: name}
	}

	calc := NewCalculator(creator())
	f.calculators[name] = calc
	return calc, nil
}

// List returns the registered names sorted alphabetically.
func (f *DefaultFactory) List() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.creators))
	for name := range f.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAll returns a copy of all calculators, creating missing ones.
func (f *DefaultFactory) GetAll() map[string]Calculator {
	f.mu.Lock()
	defer f.mu.Unlock()

	for name, creator := range f.creators {
		if _, exists := f.calculators[name]; !exists {
			f.calculators[name] = NewCalculator(creator())
		}
	}

	result := make(map[string]Calculator, len(f.calculators))
	for name, calc := range f.calculators {
		result[name] = calc
	}
	return result
}

// MustGet is like Get but panics when name is not registered.
func (f *DefaultFactory) MustGet(name string) Calculator {
	calc, err := f.Get(name)
	if err != nil {
		panic(fmt.Sprintf("fibonacci: required calculator not found: %s", name))
	}
	return calc
}

// Has reports whether name is registered.
func (f *DefaultFactory) Has(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, exists := f.creators[name]
	return exists
}

var globalFactory = NewDefaultFactory()

// GlobalFactory returns the process-wide factory.
func GlobalFactory() *DefaultFactory {
	return globalFactory
}

// UnknownCalculatorError is returned when a calculator name is not registered.
type UnknownCalculatorError struct {
	Name string
}

func (e *UnknownCalculatorError) Error() string {
	return "unknown calculator: " + e.Name
}
