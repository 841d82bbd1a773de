package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/agbru/zkfib/internal/fibonacci"
	"github.com/agbru/zkfib/internal/publicvalues"
)

// WriteResultToFile writes the result and its public values to path,
// creating parent directories as needed.
func WriteResultToFile(res fibonacci.Result, duration time.Duration, algo, path string) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	pv := publicvalues.New(res.N, res.Pair)
	encoded, err := pv.Hex()
	if err != nil {
		return err
	}
	digest, err := pv.Digest()
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "# Fibonacci Result (mod 2^32)\n")
	fmt.Fprintf(file, "# Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(file, "# Algorithm: %s\n", algo)
	fmt.Fprintf(file, "# Duration: %s\n", duration)
	fmt.Fprintf(file, "# N: %d\n", res.N)
	fmt.Fprintf(file, "\n")
	fmt.Fprintf(file, "a = %d\n", res.Pair.A)
	fmt.Fprintf(file, "b = %d\n", res.Pair.B)
	fmt.Fprintf(file, "public_values = %s\n", encoded)
	fmt.Fprintf(file, "digest = %s\n", digest.Hex())

	return file.Close()
}

// FormatQuietResult returns "a b", the single line printed in quiet mode.
func FormatQuietResult(p fibonacci.Pair) string {
	return fmt.Sprintf("%d %d", p.A, p.B)
}

// DisplayQuietResult prints FormatQuietResult followed by a newline.
func DisplayQuietResult(out io.Writer, p fibonacci.Pair) {
	fmt.Fprintln(out, FormatQuietResult(p))
}

// JSONResult is one entry of the -json output.
type JSONResult struct {
	Algorithm    string              `json:"algorithm"`
	Duration     string              `json:"duration"`
	N            uint32              `json:"n"`
	A            *uint32             `json:"a,omitempty"`
	B            *uint32             `json:"b,omitempty"`
	Ops          *fibonacci.OpCounts `json:"ops,omitempty"`
	PublicValues string              `json:"public_values,omitempty"`
	Digest       string              `json:"digest,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// NewJSONResult builds the JSON entry of one run. err takes precedence over res.
func NewJSONResult(algo string, res fibonacci.Result, duration time.Duration, err error) JSONResult {
	jr := JSONResult{Algorithm: algo, Duration: duration.String(), N: res.N}
	if err != nil {
		jr.Error = err.Error()
		return jr
	}
	a, b, ops := res.Pair.A, res.Pair.B, res.Ops
	jr.A, jr.B, jr.Ops = &a, &b, &ops
	pv := publicvalues.New(res.N, res.Pair)
	if s, err := pv.Hex(); err == nil {
		jr.PublicValues = s
	}
	if d, err := pv.Digest(); err == nil {
		jr.Digest = d.Hex()
	}
	return jr
}

// WriteJSON writes results as an indented JSON array.
func WriteJSON(out io.Writer, results []JSONResult) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
