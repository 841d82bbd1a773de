package fibonacci

// RecursiveAlgorithm is the deliberately naive recursive variant. It exists as
// the baseline for measuring what call frames cost, not as something to
// optimize.
//
// Complexity: O(n) calls, recursion depth n.
type RecursiveAlgorithm struct{}

// Name returns the descriptive name of the algorithm.
func (RecursiveAlgorithm) Name() string {
	return "Recursive (O(n) depth, no cache)"
}

// CalculateCore runs the recursion, recording operations into ops when non-nil.
func (RecursiveAlgorithm) CalculateCore(n uint32, ops *OpCounts) Pair {
	return recursive(n, ops)
}

// Recursive returns (F(n), F(n+1)) mod 2^32 by recursing on n-1.
// The base cases are n=0 -> (0, 1) and n=1 -> (1, 1).
func Recursive(n uint32) Pair {
	return recursive(n, nil)
}

func recursive(n uint32, ops *OpCounts) Pair {
	ops.call()
	switch n {
	case 0:
		return Pair{A: 0, B: 1}
	case 1:
		return Pair{A: 1, B: 1}
	}
	return recursive(n-1, ops).next(ops)
}
