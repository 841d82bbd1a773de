// Package publicvalues encodes the committed output of a Fibonacci run in
// the layout of the Solidity struct
//
//	struct PublicValuesStruct { uint32 n; uint32 a; uint32 b; }
//
// so that a record produced here can be decoded by an on-chain verifier
// contract, and the other way round.
package publicvalues

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	apperrors "github.com/agbru/zkfib/internal/errors"
	"github.com/agbru/zkfib/internal/fibonacci"
)

// EncodedSize is the length of an encoded record: three 32-byte words.
const EncodedSize = 3 * 32

// PublicValues is the record committed by a run: the index and the pair.
type PublicValues struct {
	N uint32 `json:"n"`
	A uint32 `json:"a"`
	B uint32 `json:"b"`
}

// New builds the record for index n and its pair.
func New(n uint32, p fibonacci.Pair) PublicValues {
	return PublicValues{N: n, A: p.A, B: p.B}
}

// Pair returns the (a, b) part of the record.
func (pv PublicValues) Pair() fibonacci.Pair {
	return fibonacci.Pair{A: pv.A, B: pv.B}
}

var arguments = mustArguments()

func mustArguments() abi.Arguments {
	uint32Ty, err := abi.NewType("uint32", "", nil)
	if err != nil {
		panic(fmt.Sprintf("publicvalues: building abi type: %v", err))
	}
	return abi.Arguments{
		{Name: "n", Type: uint32Ty},
		{Name: "a", Type: uint32Ty},
		{Name: "b", Type: uint32Ty},
	}
}

// Encode returns the Solidity ABI encoding of the record.
func (pv PublicValues) Encode() ([]byte, error) {
	data, err := arguments.Pack(pv.N, pv.A, pv.B)
	if err != nil {
		return nil, apperrors.WrapError(err, "encoding public values")
	}
	return data, nil
}

// Decode parses an ABI-encoded record. The input must be exactly
// EncodedSize bytes and every word must hold a value that fits in uint32.
func Decode(data []byte) (PublicValues, error) {
	if len(data) != EncodedSize {
		return PublicValues{}, apperrors.NewValidationError("public_values",
			fmt.Sprintf("expected %d bytes, got %d", EncodedSize, len(data)), len(data))
	}
	var zero [28]byte
	for i, arg := range arguments {
		word := data[i*32 : (i+1)*32]
		if !bytes.Equal(word[:28], zero[:]) {
			return PublicValues{}, apperrors.NewValidationError("public_values",
				fmt.Sprintf("field %q does not fit in uint32", arg.Name), hexutil.Encode(word))
		}
	}

	values, err := arguments.Unpack(data)
	if err != nil {
		return PublicValues{}, apperrors.NewValidationError("public_values", err.Error(), hexutil.Encode(data))
	}
	var pv PublicValues
	if err := arguments.Copy(&pv, values); err != nil {
		return PublicValues{}, apperrors.NewValidationError("public_values", err.Error(), hexutil.Encode(data))
	}
	return pv, nil
}

// Digest returns the keccak256 hash of the encoding, the value a verifier
// contract compares against.
func (pv PublicValues) Digest() (common.Hash, error) {
	data, err := pv.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(data), nil
}

// Hex returns the encoding as a 0x-prefixed hex string.
func (pv PublicValues) Hex() (string, error) {
	data, err := pv.Encode()
	if err != nil {
		return "", err
	}
	return hexutil.Encode(data), nil
}

// DecodeHex parses a 0x-prefixed hex string produced by Hex.
func DecodeHex(s string) (PublicValues, error) {
	data, err := hexutil.Decode(s)
	if err != nil {
		return PublicValues{}, apperrors.NewValidationError("public_values", err.Error(), s)
	}
	return Decode(data)
}

// Verify recomputes the pair for pv.N with the iterative reference and
// returns an apperrors.MismatchError when the committed pair differs.
func Verify(pv PublicValues) error {
	want := fibonacci.Iterative(pv.N)
	if got := pv.Pair(); got != want {
		return apperrors.MismatchError{
			N:        uint64(pv.N),
			Expected: want.String(),
			Got:      got.String(),
		}
	}
	return nil
}
