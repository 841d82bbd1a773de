package fibonacci

// OpCounts tallies the primitive operations performed by one calculation.
// Inside a zkVM the proving cost grows with executed cycles; these counters
// are the portable, deterministic stand-in used to compare the algorithms
// outside of the VM.
//
// A nil *OpCounts is valid: every recording method is a no-op on nil, which is
// how the plain public functions run without instrumentation.
type OpCounts struct {
	// Calls counts function invocations made by the algorithm, including
	// recursive calls and matrix multiplications.
	Calls uint64 `json:"calls"`
	// Additions counts wrapping 32-bit additions.
	Additions uint64 `json:"additions"`
	// Multiplications counts wrapping 32-bit multiplications.
	Multiplications uint64 `json:"multiplications"`
	// CacheLookups counts memo table lookups.
	CacheLookups uint64 `json:"cache_lookups"`
	// CacheHits counts memo table lookups that found an entry.
	CacheHits uint64 `json:"cache_hits"`
	// CacheInserts counts memo table insertions.
	CacheInserts uint64 `json:"cache_inserts"`
}

func (o *OpCounts) call() {
	if o != nil {
		o.Calls++
	}
}

func (o *OpCounts) add(k uint64) {
	if o != nil {
		o.Additions += k
	}
}

func (o *OpCounts) mul(k uint64) {
	if o != nil {
		o.Multiplications += k
	}
}

func (o *OpCounts) lookup(hit bool) {
	if o == nil {
		return
	}
	o.CacheLookups++
	if hit {
		o.CacheHits++
	}
}

func (o *OpCounts) insert() {
	if o != nil {
		o.CacheInserts++
	}
}

// Arithmetic returns the number of arithmetic operations (additions plus
// multiplications).
func (o OpCounts) Arithmetic() uint64 {
	return o.Additions + o.Multiplications
}

// Kinds returns the counters keyed by a stable, snake_case label. It is used
// for metric labels and tabular output.
func (o OpCounts) Kinds() map[string]uint64 {
	return map[string]uint64{
		"calls":           o.Calls,
		"additions":       o.Additions,
		"multiplications": o.Multiplications,
		"cache_lookups":   o.CacheLookups,
		"cache_hits":      o.CacheHits,
		"cache_inserts":   o.CacheInserts,
	}
}
