package fibonacci

// MaxRecursionDepth is the largest n the recursive algorithms may be run
// with. Each index costs one stack frame, and exhausting the goroutine stack
// aborts the whole process instead of returning an error.
const MaxRecursionDepth uint32 = 2_000_000

// RecursionLimit returns the effective limit for a configured value: values
// in [1, MaxRecursionDepth] are kept, anything else yields MaxRecursionDepth.
func RecursionLimit(configured uint32) uint32 {
	if configured == 0 || configured > MaxRecursionDepth {
		return MaxRecursionDepth
	}
	return configured
}

// IsRecursive reports whether the named algorithm recurses once per index,
// so that its stack depth grows linearly with n.
func IsRecursive(name string) bool {
	return name == AlgoRecursive || name == AlgoMemoized
}

// Trace runs the named algorithm with operation counting enabled and returns
// the pair together with the counters. It bypasses the Calculator decorator,
// so nothing is logged or exported as a metric.
func Trace(name string, n uint32) (Pair, OpCounts, error) {
	var core CoreCalculator
	switch name {
	case AlgoIterative:
		core = IterativeAlgorithm{}
	case AlgoRecursive:
		core = RecursiveAlgorithm{}
	case AlgoMemoized:
		core = MemoizedAlgorithm{}
	case AlgoMatrix:
		core = MatrixAlgorithm{}
	default:
		return Pair{}, OpCounts{}, &UnknownCalculatorError{Name: name}
	}

	var ops OpCounts
	pair := core.CalculateCore(n, &ops)
	return pair, ops, nil
}
