// internal/game/types.go
//
// Core type definitions for the guessing game.
// Defines:
//   - MatchType: where a guessed character was found (word or clue).
//   - CharacterMatch: one positional occurrence of a guessed character.
//   - CheckResult: full outcome of a single character check.

package game

// MatchType says which string a character match was found in.
// Possible values:
//   - "word": the character occurs in the secret word.
//   - "clue": the character occurs in the clue text.
type MatchType string

const (
	MatchWord MatchType = "word"
	MatchClue MatchType = "clue"
)

// CharacterMatch pinpoints one occurrence of the guessed character.
// Index is a rune position, not a byte offset, so CJK text indexes
// the way players see it on screen.
type CharacterMatch struct {
	Type  MatchType `json:"type"`
	Index int       `json:"index"`
}

// CheckResult is the outcome of checking one character against a puzzle.
// Locations lists word matches first, then clue matches, each group in
// ascending index order. IsFound is true iff Locations is non-empty.
type CheckResult struct {
	IsFound   bool             `json:"is_found"`
	Locations []CharacterMatch `json:"locations"`
}
