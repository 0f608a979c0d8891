// Package tokenfsm constrains token-by-token generation to a fixed set of
// allowed strings.
//
// Usage:
//
//	import "github.com/BaSui01/tokenfsm"
//
//	c, err := tokenfsm.Compile(tokenizer.NewDigitTokenizer(), []string{"401", "404"})
//	d, err := c.Decoder(myScorer)
//	g, err := c.Generate(ctx, d, "")
//	if g.Accepted() { fmt.Println(g.Text) }
//
// Compile builds the automaton once; the returned Choices and every Decoder
// made from it are safe for concurrent use.
package tokenfsm

import (
	"context"
	"slices"

	"github.com/BaSui01/tokenfsm/automaton"
	"github.com/BaSui01/tokenfsm/decoding"
	"github.com/BaSui01/tokenfsm/llm/tokenizer"
	"github.com/BaSui01/tokenfsm/types"
)

// Choices is a compiled set of allowed strings bound to the tokenizer that
// encoded them.
type Choices struct {
	tok       tokenizer.Tokenizer
	automaton *automaton.Automaton
	texts     []string
}

// Compile encodes choices with tok, in order, and builds the automaton.
// The tokenizer's vocabulary bounds the accepted token ids.
func Compile(tok tokenizer.Tokenizer, choices []string, opts ...automaton.BuilderOption) (*Choices, error) {
	if tok == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "tokenizer is required")
	}
	opts = append([]automaton.BuilderOption{automaton.WithVocabSize(tok.VocabSize())}, opts...)
	a, err := automaton.BuildFromStrings(tok, choices, opts...)
	if err != nil {
		return nil, err
	}
	return &Choices{tok: tok, automaton: a, texts: slices.Clone(choices)}, nil
}

// Automaton returns the compiled automaton.
func (c *Choices) Automaton() *automaton.Automaton { return c.automaton }

// Tokenizer returns the tokenizer the choices were encoded with.
func (c *Choices) Tokenizer() tokenizer.Tokenizer { return c.tok }

// Texts returns a copy of the allowed strings in build order.
func (c *Choices) Texts() []string { return slices.Clone(c.texts) }

// Fingerprint identifies the compiled automaton.
func (c *Choices) Fingerprint() string { return c.automaton.Fingerprint() }

// Decoder creates a decoder over the compiled automaton.
func (c *Choices) Decoder(scorer decoding.Scorer, opts ...decoding.Option) (*decoding.Decoder, error) {
	return decoding.New(c.automaton.Index(), scorer, opts...)
}

// EncodePrompt turns prompt text into the context tokens passed to the
// scorer. An empty prompt is an empty context.
func (c *Choices) EncodePrompt(prompt string) ([]int, error) {
	if prompt == "" {
		return nil, nil
	}
	tokens, err := c.tok.Encode(prompt)
	if err != nil {
		return nil, types.NewError(types.ErrTokenizerError, "encode prompt").WithCause(err)
	}
	return tokens, nil
}

// Detokenize turns generated tokens back into text. It works on any result,
// including ones that did not reach an accepting state.
func (c *Choices) Detokenize(res *decoding.Result) (string, error) {
	text, err := c.tok.Decode(res.Tokens)
	if err != nil {
		return "", types.NewError(types.ErrTokenizerError, "decode generated tokens").WithCause(err)
	}
	return text, nil
}

// Generation is the text-level outcome of one decode.
type Generation struct {
	*decoding.Result
	// Prompt holds the encoded prompt tokens.
	Prompt []int `json:"prompt"`
	// Text is set only when the result is Accepted.
	Text string `json:"text,omitempty"`
}

// Generate encodes prompt, runs one session of d and detokenizes the output
// when it is Accepted. d must have been created by c.Decoder.
func (c *Choices) Generate(ctx context.Context, d *decoding.Decoder, prompt string) (*Generation, error) {
	if d == nil || d.Index().Automaton() != c.automaton {
		return nil, types.NewError(types.ErrInvalidRequest, "decoder was not built from these choices")
	}
	tokens, err := c.EncodePrompt(prompt)
	if err != nil {
		return nil, err
	}
	res, err := d.Decode(ctx, tokens)
	if err != nil {
		return nil, err
	}

	g := &Generation{Result: res, Prompt: tokens}
	if res.Accepted() {
		if g.Text, err = c.Detokenize(res); err != nil {
			return nil, err
		}
	}
	return g, nil
}
