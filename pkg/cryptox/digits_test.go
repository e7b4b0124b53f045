package cryptox

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateDigitCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9]+$`)

	for _, length := range []int{4, 6, 8} {
		code, err := GenerateDigitCode(length)
		require.NoError(t, err)
		require.Len(t, code, length)
		require.Regexp(t, pattern, code)
	}
}

func TestGenerateDigitCodeKeepsLeadingZeros(t *testing.T) {
	// Over 200 draws of a 6-digit code, at least one leading zero is
	// expected (P(none) is about 10^-9); a formatter that strips zeros
	// would fail this reliably.
	for range 200 {
		code, err := GenerateDigitCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		if code[0] == '0' {
			return
		}
	}
	t.Fatal("no code with a leading zero in 200 draws")
}
