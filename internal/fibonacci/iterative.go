package fibonacci

// IterativeAlgorithm computes the pair with a plain loop. It is the reference
// implementation the other algorithms are checked against.
//
// Complexity: O(n) additions, O(1) space, a single call frame.
type IterativeAlgorithm struct{}

// Name returns the descriptive name of the algorithm.
func (IterativeAlgorithm) Name() string {
	return "Iterative (O(n), O(1) space)"
}

// CalculateCore runs the loop, recording operations into ops when non-nil.
func (IterativeAlgorithm) CalculateCore(n uint32, ops *OpCounts) Pair {
	return iterative(n, ops)
}

// Iterative returns (F(n), F(n+1)) mod 2^32 by starting from (0, 1) and
// applying (a, b) -> (b, a+b) exactly n times.
func Iterative(n uint32) Pair {
	return iterative(n, nil)
}

func iterative(n uint32, ops *OpCounts) Pair {
	ops.call()
	p := Pair{A: 0, B: 1}
	for range n {
		p = p.next(ops)
	}
	return p
}
