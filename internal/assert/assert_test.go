package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLength(t *testing.T) {
	require.NotPanics(t, func() { Length("abcd", 4) })
	require.PanicsWithValue(t, "assert.Length expected 3 actual 4", func() { Length("abcd", 3) })
}

func TestNotEmpty(t *testing.T) {
	require.NotPanics(t, func() { NotEmpty("token", "x") })
	require.PanicsWithValue(t, "assert.NotEmpty token is empty", func() { NotEmpty("token", "") })
}
