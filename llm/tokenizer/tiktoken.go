package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/BaSui01/tokenfsm/types"
)

// TiktokenTokenizer 为 OpenAI 家族模型适配 tiktoken BPE 编码.
type TiktokenTokenizer struct {
	model     string
	encoding  string
	vocabSize int
	enc       *tiktoken.Tiktoken
	once      sync.Once
	initErr   error
}

// 编码名称到词表大小（含特殊 token）。
var encodingVocab = map[string]int{
	"o200k_base":  200019,
	"cl100k_base": 100277,
	"p50k_base":   50281,
	"r50k_base":   50257,
}

// 模型名称到 tiktoken 编码的映射。
var modelEncodings = map[string]string{
	"gpt-4o":                 "o200k_base",
	"gpt-4o-mini":            "o200k_base",
	"gpt-4-turbo":            "cl100k_base",
	"gpt-4":                  "cl100k_base",
	"gpt-3.5-turbo":          "cl100k_base",
	"text-embedding-3-large": "cl100k_base",
	"text-embedding-3-small": "cl100k_base",
	"text-davinci-003":       "p50k_base",
	"davinci":                "r50k_base",
}

// NewTiktokenTokenizer 为给定模型创建基于 tiktoken 的分词器.
// 未知模型先尝试最长前缀匹配，否则默认 cl100k_base。
func NewTiktokenTokenizer(model string) (*TiktokenTokenizer, error) {
	encoding, ok := modelEncodings[model]
	if !ok {
		bestLen := 0
		for prefix, e := range modelEncodings {
			if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
				encoding, bestLen = e, len(prefix)
			}
		}
	}
	if encoding == "" {
		encoding = "cl100k_base"
	}
	return NewTiktokenTokenizerForEncoding(model, encoding)
}

// NewTiktokenTokenizerForEncoding 直接按编码名创建分词器.
func NewTiktokenTokenizerForEncoding(model, encoding string) (*TiktokenTokenizer, error) {
	size, ok := encodingVocab[encoding]
	if !ok {
		return nil, types.Errorf(types.ErrTokenizerError, "unsupported tiktoken encoding %q", encoding)
	}
	return &TiktokenTokenizer{
		model:     model,
		encoding:  encoding,
		vocabSize: size,
	}, nil
}

// init lazily 初始化 tiktoken 编码（第一次使用时可能下载 BPE 数据）.
func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = types.Errorf(types.ErrTokenizerError, "init tiktoken encoding %s", t.encoding).WithCause(err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	tokens, err := t.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(tokens), nil
}

func (t *TiktokenTokenizer) Encode(text string) ([]int, error) {
	if err := t.init(); err != nil {
		return nil, err
	}
	return t.enc.Encode(text, nil, nil), nil
}

func (t *TiktokenTokenizer) Decode(tokens []int) (string, error) {
	if err := t.init(); err != nil {
		return "", err
	}
	for _, tok := range tokens {
		if tok < 0 || tok >= t.vocabSize {
			return "", types.Errorf(types.ErrTokenizerError, "token id %d outside %s vocabulary", tok, t.encoding)
		}
	}
	return t.enc.Decode(tokens), nil
}

func (t *TiktokenTokenizer) VocabSize() int {
	return t.vocabSize
}

func (t *TiktokenTokenizer) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}

// RegisterOpenAITokenizers 登记所有已知 OpenAI 模型的分词器。
func RegisterOpenAITokenizers() {
	for model := range modelEncodings {
		t, err := NewTiktokenTokenizer(model)
		if err != nil {
			continue
		}
		RegisterTokenizer(model, t)
	}
}
