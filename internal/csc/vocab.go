package csc

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// BERT-style special tokens used by MacBERT4CSC-family checkpoints.
const (
	tokenCLS = "[CLS]"
	tokenSEP = "[SEP]"
	tokenUNK = "[UNK]"
	tokenPAD = "[PAD]"
)

// Vocab maps WordPiece tokens to ids and back. Correction models are
// character-level for CJK, so tokenization here is one rune per token.
type Vocab struct {
	ids    map[string]int64
	tokens []string
}

// LoadVocab reads a vocab.txt file (one token per line, id = line index).
func LoadVocab(path string) (*Vocab, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocab: %w", err)
	}
	defer file.Close()

	v := &Vocab{ids: make(map[string]int64)}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		token := strings.TrimRight(scanner.Text(), "\r\n")
		v.ids[token] = int64(len(v.tokens))
		v.tokens = append(v.tokens, token)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocab: %w", err)
	}
	for _, required := range []string{tokenCLS, tokenSEP, tokenUNK, tokenPAD} {
		if _, ok := v.ids[required]; !ok {
			return nil, fmt.Errorf("vocab is missing %s", required)
		}
	}
	return v, nil
}

// Size returns the vocabulary size.
func (v *Vocab) Size() int { return len(v.tokens) }

// ID returns the id for a token, falling back to [UNK].
func (v *Vocab) ID(token string) int64 {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return v.ids[tokenUNK]
}

// Token returns the token text for an id, or [UNK] when out of range.
func (v *Vocab) Token(id int64) string {
	if id < 0 || id >= int64(len(v.tokens)) {
		return tokenUNK
	}
	return v.tokens[id]
}

// EncodeChars tokenizes text one rune per token wrapped in [CLS]/[SEP],
// truncated to maxLen. It returns the ids and the rune count actually
// encoded (excluding the special tokens).
func (v *Vocab) EncodeChars(text string, maxLen int) (ids []int64, encoded int) {
	runes := []rune(text)
	budget := maxLen - 2
	if budget < 0 {
		budget = 0
	}
	if len(runes) > budget {
		runes = runes[:budget]
	}
	ids = make([]int64, 0, len(runes)+2)
	ids = append(ids, v.ID(tokenCLS))
	for _, r := range runes {
		token := string(r)
		if unicode.IsUpper(r) {
			// BERT vocabs for Chinese are lowercase for Latin letters.
			token = strings.ToLower(token)
		}
		ids = append(ids, v.ID(token))
	}
	ids = append(ids, v.ID(tokenSEP))
	return ids, len(runes)
}

// IsCJK reports whether r is in the unified ideograph block the
// correction model is trusted on. Predictions outside it are ignored.
func IsCJK(r rune) bool {
	return r >= 0x4e00 && r <= 0x9fff
}
