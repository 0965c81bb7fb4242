package serrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_Formatting(t *testing.T) {
	e := NewError("TOO_MANY_ROWS", "too many rows", "")
	require.Equal(t, "TOO_MANY_ROWS: too many rows", e.Error())

	hinted := e.WithHint("split the upload")
	require.Equal(t, "TOO_MANY_ROWS: too many rows (split the upload)", hinted.Error())
	// the sentinel stays untouched
	require.Empty(t, e.Hint)
}

func TestError_IsMatchesByCode(t *testing.T) {
	sentinel := NewError("UNKNOWN_FAMILY", "unknown entity family", "")
	wrapped := fmt.Errorf("vehicles: %w", sentinel.WithHint("known families: payments"))

	require.ErrorIs(t, wrapped, sentinel)
	require.NotErrorIs(t, wrapped, NewError("OTHER", "other", ""))
}
