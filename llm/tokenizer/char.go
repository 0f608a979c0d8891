package tokenizer

import (
	"strings"

	"github.com/BaSui01/tokenfsm/types"
)

// CharTokenizer maps each rune of a fixed alphabet to its position.
// It has no merges, so Decode(Encode(s)) == s for every s over the alphabet.
type CharTokenizer struct {
	name     string
	alphabet []rune
	ids      map[rune]int
}

// NewCharTokenizer creates a tokenizer over the distinct runes of alphabet,
// in order of first appearance.
func NewCharTokenizer(name, alphabet string) (*CharTokenizer, error) {
	t := &CharTokenizer{
		name: name,
		ids:  make(map[rune]int),
	}
	for _, r := range alphabet {
		if _, dup := t.ids[r]; dup {
			continue
		}
		t.ids[r] = len(t.alphabet)
		t.alphabet = append(t.alphabet, r)
	}
	if len(t.alphabet) == 0 {
		return nil, types.NewError(types.ErrTokenizerError, "empty alphabet")
	}
	return t, nil
}

// NewDigitTokenizer returns a tokenizer where '0'..'9' are token ids 0..9.
func NewDigitTokenizer() *CharTokenizer {
	t, _ := NewCharTokenizer("digits", "0123456789")
	return t
}

func (t *CharTokenizer) CountTokens(text string) (int, error) {
	tokens, err := t.Encode(text)
	return len(tokens), err
}

func (t *CharTokenizer) Encode(text string) ([]int, error) {
	out := make([]int, 0, len(text))
	for i, r := range text {
		id, ok := t.ids[r]
		if !ok {
			return nil, types.Errorf(types.ErrTokenizerError, "rune %q at byte %d is not in the %s alphabet", r, i, t.name)
		}
		out = append(out, id)
	}
	return out, nil
}

func (t *CharTokenizer) Decode(tokens []int) (string, error) {
	var sb strings.Builder
	for _, tok := range tokens {
		if tok < 0 || tok >= len(t.alphabet) {
			return "", types.Errorf(types.ErrTokenizerError, "token id %d outside the %s alphabet", tok, t.name)
		}
		sb.WriteRune(t.alphabet[tok])
	}
	return sb.String(), nil
}

func (t *CharTokenizer) VocabSize() int {
	return len(t.alphabet)
}

func (t *CharTokenizer) Name() string {
	return "char[" + t.name + "]"
}
