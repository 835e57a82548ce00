package referralcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate_Charset(t *testing.T) {
	g := New(8)

	code, err := g.Generate()
	require.NoError(t, err)
	require.Len(t, code, 8)

	for _, r := range code {
		require.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q", r)
	}
}

func TestGenerate_MinimumLength(t *testing.T) {
	g := New(2)

	code, err := g.Generate()
	require.NoError(t, err)
	require.Len(t, code, minLength)
}

func TestGenerate_NoRepeatsAcrossManyCalls(t *testing.T) {
	g := New(8)

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		code, err := g.Generate()
		require.NoError(t, err)

		_, dup := seen[code]
		require.False(t, dup, "duplicate code %q after %d calls", code, i)
		seen[code] = struct{}{}
	}
}
