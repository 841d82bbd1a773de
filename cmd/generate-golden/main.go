package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
)

// GoldenData is a single test case in the golden file.
type GoldenData struct {
	N uint32 `json:"n"`
	// A and B are F(n) and F(n+1) reduced modulo 2^32.
	A uint32 `json:"a"`
	B uint32 `json:"b"`
	// ExactBits is the bit length of the unreduced F(n). Anything above 32
	// means the case exercises wraparound.
	ExactBits int `json:"exact_bits"`
}

func main() {
	outputDir := flag.String("out", "internal/fibonacci/testdata", "Output directory for the golden file")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	filename := filepath.Join(*outputDir, "fibonacci_golden.json")
	file, err := os.Create(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	// Small values, the 32-bit overflow boundary (F(48) is the first value
	// that wraps), powers of two and a few larger indices.
	targets := []uint32{
		0, 1, 2, 3, 4, 5, 10, 20, 46, 47, 48, 49, 50, 92, 93, 94, 100,
		128, 256, 500, 512, 1000, 1024,
		2000, 2048, 5000, 8192, 10000,
	}

	data := make([]GoldenData, 0, len(targets))

	fmt.Println("Generating golden data...")

	for _, n := range targets {
		fn, fn1 := fibBig(n)
		data = append(data, GoldenData{
			N:         n,
			A:         reduce32(fn),
			B:         reduce32(fn1),
			ExactBits: fn.BitLen(),
		})
		fmt.Printf("Generated F(%d)\n", n)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully generated golden file at %s\n", filename)
}

// fibBig returns the exact F(n) and F(n+1) using math/big. It is the oracle
// the wrapping implementations are checked against.
func fibBig(n uint32) (*big.Int, *big.Int) {
	a := big.NewInt(0)
	b := big.NewInt(1)
	for range n {
		a.Add(a, b)
		a, b = b, a
	}
	return a, b
}

var mask32 = new(big.Int).SetUint64(1<<32 - 1)

func reduce32(x *big.Int) uint32 {
	return uint32(new(big.Int).And(x, mask32).Uint64())
}
