package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLength(t *testing.T) {
	require.NotPanics(t, func() { Length("abcd", 4) })
	require.PanicsWithValue(t, "assert.Length expected 26 actual 3", func() { Length("abc", 26) })
}
