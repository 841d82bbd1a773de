package fibonacci

// Matrix is a 2x2 matrix over uint32 stored in row-major order:
//
//	[ Values[0] Values[1] ]
//	[ Values[2] Values[3] ]
//
// It is a value type. Multiply returns a new matrix and never modifies its
// operands.
type Matrix struct {
	Values [4]uint32
}

// NewMatrix builds a matrix from four row-major values. Any values are accepted.
func NewMatrix(values [4]uint32) Matrix {
	return Matrix{Values: values}
}

// IdentityMatrix returns [[1, 0], [0, 1]].
func IdentityMatrix() Matrix {
	return NewMatrix([4]uint32{1, 0, 0, 1})
}

// TransitionMatrix returns the Fibonacci Q-matrix [[1, 1], [1, 0]].
// Its n-th power is [[F(n+1), F(n)], [F(n), F(n-1)]].
func TransitionMatrix() Matrix {
	return NewMatrix([4]uint32{1, 1, 1, 0})
}

// Multiply returns the product m × other. Every cell is computed with
// wrapping multiplication and addition, so the operation never fails.
func (m Matrix) Multiply(other Matrix) Matrix {
	return m.multiply(other, nil)
}

func (m Matrix) multiply(other Matrix, ops *OpCounts) Matrix {
	ops.call()
	ops.mul(8)
	ops.add(4)
	x, y := m.Values, other.Values
	return NewMatrix([4]uint32{
		x[0]*y[0] + x[1]*y[2],
		x[0]*y[1] + x[1]*y[3],
		x[2]*y[0] + x[3]*y[2],
		x[2]*y[1] + x[3]*y[3],
	})
}
