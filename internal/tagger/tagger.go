// Package tagger defines the part-of-speech collaborator consumed by the
// POS pattern detector, plus a dictionary-driven default implementation.
// The detection engine only depends on the Tagger interface; heavier
// taggers can be plugged in behind it.
package tagger

// Token is one tagged segment. Start and End are rune offsets into the
// tagged text, End exclusive.
type Token struct {
	Word  string `json:"word"`
	Tag   string `json:"tag"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Tagger segments text into an ordered sequence of tagged tokens.
type Tagger interface {
	Tag(text string) ([]Token, error)
}
