package fibonacci

import "github.com/google/btree"

// memoDegree is the B-tree branching factor of the memo table.
const memoDegree = 16

// MemoizedAlgorithm is the recursive variant backed by a per-call memo table.
//
// The table is an ordered B-tree keyed by n, not a Go map: lookup cost must
// depend only on the number of entries, never on hashing.
type MemoizedAlgorithm struct{}

// Name returns the descriptive name of the algorithm.
func (MemoizedAlgorithm) Name() string {
	return "Memoized Recursive (O(n), B-tree cache)"
}

// CalculateCore runs the memoized recursion, recording operations into ops
// when non-nil.
func (MemoizedAlgorithm) CalculateCore(n uint32, ops *OpCounts) Pair {
	return memoized(n, ops)
}

// Memoized returns (F(n), F(n+1)) mod 2^32 using the same decomposition as
// Recursive plus a memo table that lives only for this call.
func Memoized(n uint32) Pair {
	return memoized(n, nil)
}

// memoEntry is a memo table record ordered by its index.
type memoEntry struct {
	n    uint32
	pair Pair
}

func memoLess(a, b memoEntry) bool {
	return a.n < b.n
}

func memoized(n uint32, ops *OpCounts) Pair {
	memo := btree.NewG(memoDegree, memoLess)
	return memoizedStep(n, memo, ops)
}

func memoizedStep(n uint32, memo *btree.BTreeG[memoEntry], ops *OpCounts) Pair {
	ops.call()
	// Base cases bypass the table entirely and are never stored.
	switch n {
	case 0:
		return Pair{A: 0, B: 1}
	case 1:
		return Pair{A: 1, B: 1}
	}

	if e, ok := memo.Get(memoEntry{n: n}); ok {
		ops.lookup(true)
		return e.pair
	}
	ops.lookup(false)

	result := memoizedStep(n-1, memo, ops).next(ops)
	memo.ReplaceOrInsert(memoEntry{n: n, pair: result})
	ops.insert()
	return result
}
