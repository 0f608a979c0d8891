// MockScorer 的打分能力测试模拟实现。
//
// 支持固定分数向量、按上下文计算、错误注入与调用记录。
package mocks

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// MockScorer 是 decoding.Scorer 的模拟实现
type MockScorer struct {
	mu sync.Mutex

	vocab  int
	scores []float64
	fn     func(tokens []int) []float64
	err    error

	// 行为控制
	delay     time.Duration
	failAfter int // 在第 N 次调用后失败，0 表示不限制
	callCount int

	calls [][]int
}

// ErrMockScorer 是 WithFailAfter 注入的默认错误
var ErrMockScorer = errors.New("mock scorer failure")

// NewMockScorer 创建全零分数的 MockScorer
func NewMockScorer(vocab int) *MockScorer {
	return &MockScorer{vocab: vocab}
}

// WithScores 设置固定分数向量（长度可以与词表不同，用于测试长度校验）
func (m *MockScorer) WithScores(scores []float64) *MockScorer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = slices.Clone(scores)
	return m
}

// WithFunc 按上下文计算分数
func (m *MockScorer) WithFunc(fn func(tokens []int) []float64) *MockScorer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
	return m
}

// WithError 设置每次调用都返回的错误
func (m *MockScorer) WithError(err error) *MockScorer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithDelay 设置每次调用的延迟，延迟期间响应 ctx 取消
func (m *MockScorer) WithDelay(d time.Duration) *MockScorer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithFailAfter 设置在第 N 次调用后失败
func (m *MockScorer) WithFailAfter(n int) *MockScorer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// Score 实现 decoding.Scorer
func (m *MockScorer) Score(ctx context.Context, tokens []int) ([]float64, error) {
	m.mu.Lock()
	m.callCount++
	m.calls = append(m.calls, slices.Clone(tokens))
	count := m.callCount
	delay, err, fn := m.delay, m.err, m.fn
	fixed := slices.Clone(m.scores)
	failAfter := m.failAfter
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if failAfter > 0 && count > failAfter {
		return nil, ErrMockScorer
	}
	if fn != nil {
		return fn(tokens), nil
	}
	if fixed != nil {
		return fixed, nil
	}
	return make([]float64, m.vocab), nil
}

// VocabSize 实现 decoding.Scorer
func (m *MockScorer) VocabSize() int { return m.vocab }

// CallCount 返回调用次数
func (m *MockScorer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Calls 返回每次调用收到的上下文副本
func (m *MockScorer) Calls() [][]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]int, len(m.calls))
	for i, c := range m.calls {
		out[i] = slices.Clone(c)
	}
	return out
}

// Reset 清空调用记录
func (m *MockScorer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.calls = nil
}
