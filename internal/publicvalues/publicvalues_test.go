package publicvalues

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/agbru/zkfib/internal/errors"
	"github.com/agbru/zkfib/internal/fibonacci"
)

// word returns the hex form of one left-padded ABI word.
func word(v uint32) string {
	return fmt.Sprintf("%064x", v)
}

func TestEncodeLayout(t *testing.T) {
	t.Parallel()
	pv := New(10, fibonacci.Iterative(10))
	require.Equal(t, PublicValues{N: 10, A: 55, B: 89}, pv)

	data, err := pv.Encode()
	require.NoError(t, err)
	require.Len(t, data, EncodedSize)

	want := "0x" + word(10) + word(55) + word(89)
	got, err := pv.Hex()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEncodeMaxValues(t *testing.T) {
	t.Parallel()
	pv := PublicValues{N: 0xFFFFFFFF, A: 0xFFFFFFFF, B: 0}
	data, err := pv.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, data[28:32])
	assert.Equal(t, make([]byte, 28), data[:28])

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, pv, decoded)
}

func TestDecodeRoundTripAcrossVariants(t *testing.T) {
	t.Parallel()
	for _, n := range []uint32{0, 1, 47, 48, 100, 1000} {
		pv := New(n, fibonacci.MatrixPower(n))
		s, err := pv.Hex()
		require.NoError(t, err)

		back, err := DecodeHex(s)
		require.NoError(t, err)
		assert.Equal(t, pv, back, "n=%d", n)
		assert.NoError(t, Verify(back), "n=%d", n)
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	t.Parallel()
	good, err := New(5, fibonacci.Iterative(5)).Encode()
	require.NoError(t, err)

	overflow := append([]byte(nil), good...)
	overflow[32+27] = 1 // a = 2^32 + 5

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", good[:64]},
		{"long", append(append([]byte(nil), good...), 0)},
		{"overflow", overflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.data)
			require.Error(t, err)
			var verr apperrors.ValidationError
			assert.True(t, errors.As(err, &verr), "want ValidationError, got %T", err)
			assert.Equal(t, "public_values", verr.Field)
		})
	}
}

func TestDecodeHexRejectsMalformed(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"", "abcd", "0xzz", "0x" + word(1)} {
		_, err := DecodeHex(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestDigest(t *testing.T) {
	t.Parallel()
	pv := New(20, fibonacci.Iterative(20))
	data, err := pv.Encode()
	require.NoError(t, err)

	digest, err := pv.Digest()
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256Hash(data), digest)
	assert.NotEqual(t, common.Hash{}, digest)

	other, err := New(21, fibonacci.Iterative(21)).Digest()
	require.NoError(t, err)
	assert.NotEqual(t, digest, other)
}

func TestVerify(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Verify(New(93, fibonacci.Recursive(93))))

	err := Verify(PublicValues{N: 10, A: 55, B: 90})
	require.Error(t, err)
	var mismatch apperrors.MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, uint64(10), mismatch.N)
	assert.Equal(t, "(55, 89)", mismatch.Expected)
	assert.Equal(t, "(55, 90)", mismatch.Got)
}
