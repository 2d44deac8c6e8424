// Package detect implements the six writing-quality detectors behind one
// shared contract. Detectors are pure with respect to their inputs and
// the rule snapshot they are handed, so the orchestrator can fan them out
// concurrently over the same text.
package detect

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/zhcheck/zhcheck/internal/issue"
	"github.com/zhcheck/zhcheck/internal/rules"
)

// ErrUnavailable marks a detector that could not run at all: its rule
// category failed to load or its backing model is down. The orchestrator
// keeps this distinct from a detector that ran and found nothing.
var ErrUnavailable = errors.New("detector unavailable")

// Detector is the shared capability. Scan must not mutate shared state
// and must be safe to call concurrently with other detectors on the same
// text and snapshot.
type Detector interface {
	Kind() issue.Kind
	Scan(ctx context.Context, text string, snap *rules.Snapshot) ([]issue.Issue, error)
}

// byteToRuneOffsets builds a byte-offset -> rune-offset table for text.
// Regex and substring matches report byte spans; issues carry codepoint
// offsets.
func byteToRuneOffsets(text string) []int {
	offsets := make([]int, len(text)+1)
	runeIdx := 0
	for byteIdx, r := range text {
		for j := 0; j < utf8.RuneLen(r); j++ {
			offsets[byteIdx+j] = runeIdx
		}
		runeIdx++
	}
	offsets[len(text)] = runeIdx
	return offsets
}
