package server

import (
	"github.com/agbru/zkfib/internal/fibonacci"
	"github.com/agbru/zkfib/internal/service"
)

// CalculateResponse is the body of a successful /calculate request.
type CalculateResponse struct {
	N            uint32             `json:"n"`
	A            uint32             `json:"a"`
	B            uint32             `json:"b"`
	Algorithm    string             `json:"algorithm"`
	Duration     string             `json:"duration"`
	Ops          fibonacci.OpCounts `json:"ops"`
	PublicValues string             `json:"public_values"`
	Digest       string             `json:"digest"`
	Cached       bool               `json:"cached"`
}

// CompareResponse is the body of a /compare request.
type CompareResponse struct {
	N          uint32              `json:"n"`
	Results    []CalculateResponse `json:"results"`
	Skipped    []string            `json:"skipped,omitempty"`
	Consistent bool                `json:"consistent"`
}

// SequenceResponse is the body of a /sequence request. Values[i] is
// F(Start+i) mod 2^32.
type SequenceResponse struct {
	Start  uint32   `json:"start"`
	Count  uint32   `json:"count"`
	Values []uint32 `json:"values"`
}

// VerifyRequest is the body of a POST /verify request.
type VerifyRequest struct {
	PublicValues string `json:"public_values"`
}

// VerifyResponse reports the outcome of /verify. Expected is set when the
// record does not match.
type VerifyResponse struct {
	N        uint32          `json:"n"`
	Got      fibonacci.Pair  `json:"got"`
	Valid    bool            `json:"valid"`
	Expected *fibonacci.Pair `json:"expected,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func newCalculateResponse(o service.Outcome) (CalculateResponse, error) {
	encoded, err := o.PublicValues.Hex()
	if err != nil {
		return CalculateResponse{}, err
	}
	digest, err := o.PublicValues.Digest()
	if err != nil {
		return CalculateResponse{}, err
	}
	return CalculateResponse{
		N:            o.Result.N,
		A:            o.Result.Pair.A,
		B:            o.Result.Pair.B,
		Algorithm:    o.Algorithm,
		Duration:     o.Duration.String(),
		Ops:          o.Result.Ops,
		PublicValues: encoded,
		Digest:       digest.Hex(),
		Cached:       o.Cached,
	}, nil
}
