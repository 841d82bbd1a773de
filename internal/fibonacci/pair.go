package fibonacci

import "fmt"

// Pair holds two consecutive Fibonacci numbers, (F(n), F(n+1)), each reduced
// modulo 2^32. It is the common return contract of every algorithm in this
// package.
type Pair struct {
	// A is F(n) mod 2^32.
	A uint32 `json:"a"`
	// B is F(n+1) mod 2^32.
	B uint32 `json:"b"`
}

// String formats the pair as "(a, b)".
func (p Pair) String() string {
	return fmt.Sprintf("(%d, %d)", p.A, p.B)
}

// next applies one step of the recurrence: (a, b) -> (b, a+b).
func (p Pair) next(ops *OpCounts) Pair {
	ops.add(1)
	return Pair{A: p.B, B: p.A + p.B}
}
