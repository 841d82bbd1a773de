package fibonacci

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// GoldenData mirrors the records written by cmd/generate-golden.
type GoldenData struct {
	N         uint32 `json:"n"`
	A         uint32 `json:"a"`
	B         uint32 `json:"b"`
	ExactBits int    `json:"exact_bits"`
}

func loadGolden(t *testing.T) []GoldenData {
	t.Helper()
	goldenPath := filepath.Join("testdata", "fibonacci_golden.json")
	file, err := os.Open(goldenPath)
	if err != nil {
		t.Fatalf("Failed to open golden file: %v. Did you run 'go run ./cmd/generate-golden'?", err)
	}
	defer file.Close()

	var cases []GoldenData
	if err := json.NewDecoder(file).Decode(&cases); err != nil {
		t.Fatalf("Failed to decode golden file: %v", err)
	}
	return cases
}

func TestCalculatorsAgainstGoldenFile(t *testing.T) {
	cases := loadGolden(t)

	wrapped := 0
	for _, tc := range cases {
		if tc.ExactBits > 32 {
			wrapped++
		}
	}
	if wrapped == 0 {
		t.Fatal("golden file has no wraparound cases")
	}

	ctx := context.Background()
	factory := NewDefaultFactory()

	for name, calc := range factory.GetAll() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			for _, tc := range cases {
				t.Run(fmt.Sprintf("N=%d", tc.N), func(t *testing.T) {
					t.Parallel()
					res, err := calc.Calculate(ctx, nil, 0, tc.N)
					if err != nil {
						t.Fatalf("Calculation failed for N=%d: %v", tc.N, err)
					}
					want := Pair{A: tc.A, B: tc.B}
					if res.Pair != want {
						t.Errorf("Mismatch for N=%d.\nExpected: %v\nGot:      %v", tc.N, want, res.Pair)
					}
				})
			}
		})
	}
}
