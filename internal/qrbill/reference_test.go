package qrbill

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDigit_Vectors(t *testing.T) {
	cases := []struct {
		base string
		want int
	}{
		{"00000000000000000000000042", 0},
		{"21000000000313947143000901", 7}, // published example 21 00000 00003 13947 14300 09017
		{"00000000000000000000000000", 0},
		{"12345678901234567890123456", 7},
		{"00000000000000000000000001", 1},
		{"00000000000000000000001234", 7},
	}

	for _, tc := range cases {
		t.Run(tc.base, func(t *testing.T) {
			got, err := CheckDigit(tc.base)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReference_AppendsCheckDigit(t *testing.T) {
	ref, err := Reference("21000000000313947143000901")
	require.NoError(t, err)
	assert.Equal(t, "210000000003139471430009017", ref)
	assert.NoError(t, ValidateReference(ref))
}

func TestReference_RejectsNonDigits(t *testing.T) {
	for _, base := range []string{"", "12a4", "00 01", "-1", "١٢"} {
		_, err := Reference(base)
		assert.Truef(t, errors.Is(err, ErrInvalidInput), "base %q: expected ErrInvalidInput, got %v", base, err)
	}
}

func TestReference_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		base := fmt.Sprintf("%026d", rng.Int63())
		ref, err := Reference(base)
		require.NoError(t, err)
		require.Len(t, ref, len(base)+1)

		again, err := CheckDigit(ref[:len(ref)-1])
		require.NoError(t, err)
		assert.Equal(t, int(ref[len(ref)-1]-'0'), again)
		assert.NoError(t, ValidateReference(ref))
	}
}

func TestValidateReference_DetectsSingleDigitErrors(t *testing.T) {
	ref := "210000000003139471430009017"
	for i := 0; i < len(ref); i++ {
		for d := byte('0'); d <= '9'; d++ {
			if ref[i] == d {
				continue
			}
			broken := ref[:i] + string(d) + ref[i+1:]
			assert.Errorf(t, ValidateReference(broken), "mutation %s should be rejected", broken)
		}
	}
}

func TestPadBase(t *testing.T) {
	base, err := PadBase("42", BaseLength)
	require.NoError(t, err)
	assert.Equal(t, "00000000000000000000000042", base)

	_, err = PadBase("INV-1", BaseLength)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = PadBase("123456", 3)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestReferenceFor(t *testing.T) {
	ref, err := ReferenceFor("000042")
	require.NoError(t, err)
	assert.Equal(t, "000000000000000000000000420", ref)
}

func TestFormatReference(t *testing.T) {
	assert.Equal(t, "21 00000 00003 13947 14300 09017", FormatReference("210000000003139471430009017"))
	assert.Equal(t, "12345", FormatReference("12345"))
	assert.Equal(t, "1 23456", FormatReference("123456"))
}
