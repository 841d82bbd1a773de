package fibonacci

// MatrixAlgorithm computes the pair by repeated multiplication with the
// Q-matrix.
//
// It performs exactly n multiplications and does not use exponentiation by
// squaring: the variant is kept linear so that its cost compares like for like
// with the other three.
type MatrixAlgorithm struct{}

// Name returns the descriptive name of the algorithm.
func (MatrixAlgorithm) Name() string {
	return "Matrix Power (O(n) multiplications)"
}

// CalculateCore runs the multiplication loop, recording operations into ops
// when non-nil.
func (MatrixAlgorithm) CalculateCore(n uint32, ops *OpCounts) Pair {
	return matrixPower(n, ops)
}

// MatrixPower returns (F(n), F(n+1)) mod 2^32.
//
// After n multiplications the accumulator is [[F(n+1), F(n)], [F(n), F(n-1)]],
// so the pair is (Values[1], Values[0]).
func MatrixPower(n uint32) Pair {
	return matrixPower(n, nil)
}

func matrixPower(n uint32, ops *OpCounts) Pair {
	ops.call()
	acc := IdentityMatrix()
	q := TransitionMatrix()
	for range n {
		acc = acc.multiply(q, ops)
	}
	return Pair{A: acc.Values[1], B: acc.Values[0]}
}
