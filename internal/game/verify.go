// internal/game/verify.go
//
// Character verification for a single puzzle round.
// Responsibilities:
//   - Validate that the guess is exactly one character.
//   - Scan the secret word, then the clue, left to right, collecting
//     every position where the guessed character occurs.
//
// The check is a pure function of its inputs: no state, no side effects,
// safe to call repeatedly with identical arguments.
package game

import "errors"

// ErrInvalidCharacter is returned when the guess input is empty or longer
// than one character.
var ErrInvalidCharacter = errors.New("guess must be exactly one character")

// CheckChar reports whether char occurs in word or clue, and where.
//
// Ordering guarantees:
//   - All word matches precede all clue matches.
//   - Within each group, indices are strictly increasing.
func CheckChar(char, word, clue string) (CheckResult, error) {
	runes := []rune(char)
	if len(runes) != 1 {
		return CheckResult{}, ErrInvalidCharacter
	}
	target := runes[0]

	locations := make([]CharacterMatch, 0)
	locations = append(locations, scan(target, word, MatchWord)...)
	locations = append(locations, scan(target, clue, MatchClue)...)

	return CheckResult{
		IsFound:   len(locations) > 0,
		Locations: locations,
	}, nil
}

// scan collects a match for every rune position in s equal to target.
func scan(target rune, s string, t MatchType) []CharacterMatch {
	var out []CharacterMatch
	i := 0
	for _, r := range s {
		if r == target {
			out = append(out, CharacterMatch{Type: t, Index: i})
		}
		i++
	}
	return out
}
