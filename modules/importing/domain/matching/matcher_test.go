package matching

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func walletIndex() *Index {
	return NewIndex([]Entry{
		{ID: 1, Labels: []string{"Peso Argentino (ARS)", "ARS"}},
		{ID: 2, Labels: []string{"Dólar (USD)", "USD"}},
		{ID: 3, Labels: []string{"Caja Chica"}},
	})
}

func TestFind_ExactNormalized(t *testing.T) {
	ix := walletIndex()
	m, ok := Find("  caja chica ", ix, nil)
	require.True(t, ok)
	require.Equal(t, int64(3), m.ID)
	require.Equal(t, TierExact, m.Tier)
}

func TestFind_DiacriticsFold(t *testing.T) {
	ix := NewIndex([]Entry{{ID: 9, Labels: []string{"Hormigón"}}})
	m, ok := Find("hormigon", ix, nil)
	require.True(t, ok)
	require.Equal(t, int64(9), m.ID)
	require.Equal(t, TierExact, m.Tier)
}

func TestFind_StemMatchesPluralAgainstLongLabel(t *testing.T) {
	ix := walletIndex()
	m, ok := Find("pesos", ix, nil)
	require.True(t, ok)
	require.Equal(t, int64(1), m.ID)
	require.Equal(t, TierSubstring, m.Tier)
}

func TestFind_SubstringSameRecordTwiceIsNotAmbiguous(t *testing.T) {
	// "ars" occurs in two keys of record 1; a single distinct id is a match.
	ix := walletIndex()
	m, ok := Find("ars", ix, nil)
	require.True(t, ok)
	require.Equal(t, int64(1), m.ID)
}

func TestFind_AmbiguousSubstringIsNoMatch(t *testing.T) {
	ix := NewIndex([]Entry{
		{ID: 1, Labels: []string{"Arena Fina"}},
		{ID: 2, Labels: []string{"Arena Gruesa"}},
	})
	_, ok := Find("arena", ix, nil)
	require.False(t, ok)
}

func TestFind_FuzzyWithinBound(t *testing.T) {
	ix := NewIndex([]Entry{{ID: 4, Labels: []string{"Cemento"}}})
	// one deletion, bound for a 6-rune value is 2
	m, ok := Find("cemnto", ix, nil)
	require.True(t, ok)
	require.Equal(t, int64(4), m.ID)
	require.Equal(t, TierFuzzy, m.Tier)
}

func TestFind_FuzzyBeyondBoundIsNoMatch(t *testing.T) {
	ix := NewIndex([]Entry{{ID: 4, Labels: []string{"Cemento"}}})
	// 3-rune value tolerates distance 1; "cmt" is 4 edits away
	_, ok := Find("cmt", ix, nil)
	require.False(t, ok)
}

func TestFind_FuzzyTieIsNoMatch(t *testing.T) {
	ix := NewIndex([]Entry{
		{ID: 1, Labels: []string{"malla 12"}},
		{ID: 2, Labels: []string{"talla 12"}},
	})
	// "calla 12" is distance 1 from both records
	_, ok := Find("calla 12", ix, nil)
	require.False(t, ok)
}

func TestFind_LearnedPatternOutranksExact(t *testing.T) {
	ix := walletIndex()
	patterns := Patterns{"Caja Chica": 2}
	m, ok := Find("Caja Chica", ix, patterns)
	require.True(t, ok)
	require.Equal(t, int64(2), m.ID)
	require.Equal(t, TierLearned, m.Tier)
}

func TestFind_LearnedPatternMatchesUntrimmedRawOnly(t *testing.T) {
	ix := walletIndex()
	patterns := Patterns{"Caja Chica ": 2}
	m, ok := Find("Caja Chica", ix, patterns)
	require.True(t, ok)
	require.Equal(t, TierExact, m.Tier)
	require.Equal(t, int64(3), m.ID)
}

func TestFind_LearnedPatternHitsOnNilIndex(t *testing.T) {
	patterns := Patterns{"Caja Vieja": 7}
	m, ok := Find("Caja Vieja", nil, patterns)
	require.True(t, ok)
	require.Equal(t, int64(7), m.ID)
	require.Equal(t, TierLearned, m.Tier)
	require.Empty(t, m.Label)

	_, ok = Find("Caja Vieja", NewIndex(nil), patterns)
	require.True(t, ok)
}

func TestFind_EmptyValueAndEmptyIndex(t *testing.T) {
	_, ok := Find("   ", walletIndex(), nil)
	require.False(t, ok)

	_, ok = Find("caja chica", NewIndex(nil), nil)
	require.False(t, ok)
}

func TestFind_Deterministic(t *testing.T) {
	ix := walletIndex()
	first, ok := Find("pesos", ix, nil)
	require.True(t, ok)
	for i := 0; i < 50; i++ {
		m, ok := Find("pesos", ix, nil)
		require.True(t, ok)
		require.Equal(t, first, m)
	}
}

func TestMaxFuzzyDistance(t *testing.T) {
	require.Equal(t, 1, maxFuzzyDistance("abc"))
	require.Equal(t, 2, maxFuzzyDistance("abcdef"))
	require.Equal(t, 3, maxFuzzyDistance("abcdefgh"))
	require.Equal(t, 3, maxFuzzyDistance("a very long material name"))
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "hormigon armado", Normalize("  Hormigón Armado  "))
	require.Equal(t, "nunez", Normalize("Núñez"))
	require.Equal(t, "", Normalize("   "))
}
