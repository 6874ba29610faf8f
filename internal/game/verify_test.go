package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckChar_WordAndClueMatches(t *testing.T) {
	res, err := CheckChar("a", "banana", "a tasty snack")
	require.NoError(t, err)

	assert.True(t, res.IsFound)
	assert.Equal(t, []CharacterMatch{
		{Type: MatchWord, Index: 1},
		{Type: MatchWord, Index: 3},
		{Type: MatchWord, Index: 5},
		{Type: MatchClue, Index: 0},
		{Type: MatchClue, Index: 3},
		{Type: MatchClue, Index: 10},
	}, res.Locations)
}

func TestCheckChar_CJKRuneIndexing(t *testing.T) {
	// "人工智能" is four characters long; "智" sits at rune index 2.
	word := "人工智能"
	clue := "一门让机器拥有智慧的学科"

	res, err := CheckChar("智", word, clue)
	require.NoError(t, err)
	require.True(t, res.IsFound)

	require.NotEmpty(t, res.Locations)
	assert.Equal(t, CharacterMatch{Type: MatchWord, Index: 2}, res.Locations[0])
	// remaining matches come from the clue
	for _, m := range res.Locations[1:] {
		assert.Equal(t, MatchClue, m.Type)
	}
}

func TestCheckChar_NotFound(t *testing.T) {
	res, err := CheckChar("z", "banana", "a tasty snack")
	require.NoError(t, err)

	assert.False(t, res.IsFound)
	assert.NotNil(t, res.Locations)
	assert.Empty(t, res.Locations)
}

func TestCheckChar_FoundMatchesConcatenation(t *testing.T) {
	cases := []struct {
		char, word, clue string
	}{
		{"a", "banana", "fruit"},
		{"f", "banana", "fruit"},
		{"q", "banana", "fruit"},
		{"电", "电脑", "办公和娱乐都离不开的机器"},
		{"脑", "电脑", "办公和娱乐都离不开的机器"},
		{"狗", "电脑", "办公和娱乐都离不开的机器"},
	}
	for _, tc := range cases {
		res, err := CheckChar(tc.char, tc.word, tc.clue)
		require.NoError(t, err)

		want := strings.Contains(tc.word+tc.clue, tc.char)
		assert.Equal(t, want, res.IsFound, "char %q in %q+%q", tc.char, tc.word, tc.clue)
		assert.Equal(t, strings.Count(tc.word, tc.char)+strings.Count(tc.clue, tc.char), len(res.Locations))
	}
}

func TestCheckChar_OrderingProperties(t *testing.T) {
	res, err := CheckChar("o", "ood", "o o o")
	require.NoError(t, err)

	sawClue := false
	lastIdx := map[MatchType]int{MatchWord: -1, MatchClue: -1}
	for _, m := range res.Locations {
		if m.Type == MatchClue {
			sawClue = true
		} else {
			require.False(t, sawClue, "word match after clue match")
		}
		assert.Greater(t, m.Index, lastIdx[m.Type], "indices must strictly increase per group")
		lastIdx[m.Type] = m.Index
	}
}

func TestCheckChar_InvalidInput(t *testing.T) {
	for _, bad := range []string{"", "ab", "智能"} {
		_, err := CheckChar(bad, "word", "clue")
		assert.ErrorIs(t, err, ErrInvalidCharacter, "input %q", bad)
	}

	// a single multi-byte rune is valid input
	_, err := CheckChar("智", "word", "clue")
	assert.NoError(t, err)
}

func TestCheckChar_Idempotent(t *testing.T) {
	first, err := CheckChar("n", "banana", "a long yellow fruit")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := CheckChar("n", "banana", "a long yellow fruit")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
