package main

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/tokenfsm"
	"github.com/BaSui01/tokenfsm/config"
	"github.com/BaSui01/tokenfsm/decoding"
	"github.com/BaSui01/tokenfsm/internal/cache"
	"github.com/BaSui01/tokenfsm/llm/retry"
	"github.com/BaSui01/tokenfsm/llm/scorer"
	"github.com/BaSui01/tokenfsm/llm/tokenizer"
)

// =============================================================================
// 🔌 组件装配
// =============================================================================

func buildTokenizer(cfg config.TokenizerConfig) (tokenizer.Tokenizer, error) {
	switch cfg.Kind {
	case "tiktoken":
		if cfg.Encoding != "" {
			return tokenizer.NewTiktokenTokenizerForEncoding(cfg.Model, cfg.Encoding)
		}
		tokenizer.RegisterOpenAITokenizers()
		if t, err := tokenizer.GetTokenizer(cfg.Model); err == nil {
			return t, nil
		}
		return tokenizer.NewTiktokenTokenizer(cfg.Model)
	case "char", "":
		return tokenizer.NewCharTokenizer("alphabet", cfg.Alphabet)
	default:
		return nil, fmt.Errorf("unknown tokenizer kind %q", cfg.Kind)
	}
}

// scorerStack 打分器及其可关闭的依赖
type scorerStack struct {
	scorer decoding.Scorer
	cache  *scorer.CachingScorer
	redis  *cache.Manager
}

func (s *scorerStack) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

// buildScorer 组装基础打分器与中间件：缓存 → 重试 → 限流 → 基础打分器。
// Redis 不可用时退化为仅本地缓存。
func buildScorer(cfg *config.Config, choices *tokenfsm.Choices, promptLen int, logger *zap.Logger) (*scorerStack, error) {
	vocab := choices.Tokenizer().VocabSize()

	var base decoding.Scorer
	params := sha256.New()
	switch cfg.Scorer.Kind {
	case "uniform", "":
		base = scorer.NewUniformScorer(vocab)
	case "bias":
		base = scorer.NewBiasScorer(cfg.Scorer.Bias)
		for _, b := range cfg.Scorer.Bias {
			writeUint64(params, math.Float64bits(b))
		}
	case "oracle":
		target, err := choices.Tokenizer().Encode(cfg.Scorer.Target)
		if err != nil {
			return nil, fmt.Errorf("encode oracle target: %w", err)
		}
		o, err := scorer.NewOracleScorer(vocab, promptLen, target)
		if err != nil {
			return nil, err
		}
		base = o
		writeUint64(params, uint64(promptLen))
		for _, tok := range target {
			writeUint64(params, uint64(tok))
		}
	default:
		return nil, fmt.Errorf("unknown scorer kind %q", cfg.Scorer.Kind)
	}

	var mws []scorer.Middleware
	if cfg.Scorer.MaxRetries > 0 {
		policy := retry.DefaultPolicy()
		policy.MaxRetries = cfg.Scorer.MaxRetries
		policy.InitialDelay = cfg.Scorer.RetryDelay
		mws = append(mws, scorer.WithRetry(retry.NewRetryer(policy, logger)))
	}
	if cfg.Scorer.RateLimit > 0 {
		mws = append(mws, scorer.WithRateLimit(rate.Limit(cfg.Scorer.RateLimit), max(cfg.Scorer.Burst, 1)))
	}

	stack := &scorerStack{scorer: scorer.Chain(base, mws...)}
	if !cfg.Scorer.CacheEnabled {
		return stack, nil
	}

	var remote scorer.RemoteCache
	if cfg.Scorer.RedisCache {
		mgr, err := cache.NewManager(cache.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			KeyPrefix:    cfg.Redis.KeyPrefix,
			DefaultTTL:   cfg.Redis.TTL,
			MaxRetries:   3,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, logger)
		if err != nil {
			logger.Warn("redis unavailable, using in-process score cache only", zap.Error(err))
		} else {
			stack.redis = mgr
			remote = mgr
		}
	}

	namespace := fmt.Sprintf("%s:%s:%s:%s", choices.Tokenizer().Name(), cfg.Scorer.Kind,
		choices.Fingerprint(), hex.EncodeToString(params.Sum(nil))[:16])
	stack.cache = scorer.NewCachingScorer(stack.scorer, scorer.CacheConfig{
		Namespace:    namespace,
		LocalMaxSize: cfg.Scorer.CacheSize,
		LocalTTL:     cfg.Scorer.CacheTTL,
		RemoteTTL:    cfg.Redis.TTL,
	}, remote, logger)
	stack.scorer = stack.cache
	return stack, nil
}

func decoderOptions(cfg config.DecoderConfig, logger *zap.Logger, tracer trace.Tracer, observers ...decoding.Observer) ([]decoding.Option, error) {
	selector, err := decoding.ParseSelector(cfg.Selection, cfg.Seed)
	if err != nil {
		return nil, err
	}
	policy, err := decoding.ParseAcceptPolicy(cfg.AcceptPolicy)
	if err != nil {
		return nil, err
	}
	opts := []decoding.Option{
		decoding.WithSelector(selector),
		decoding.WithAcceptPolicy(policy),
		decoding.WithLogger(logger),
		decoding.WithTracer(tracer),
	}
	if cfg.MaxSteps >= 0 {
		opts = append(opts, decoding.WithMaxSteps(cfg.MaxSteps))
	}
	for _, o := range observers {
		if o != nil {
			opts = append(opts, decoding.WithObserver(o))
		}
	}
	return opts, nil
}

// writeUint64 写入打分器参数摘要；参数不同的打分器不能共享缓存向量
func writeUint64(w io.Writer, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = w.Write(buf[:])
}

// runContext 附加运行超时
func runContext(parent context.Context, cfg config.DecoderConfig) (context.Context, context.CancelFunc) {
	if cfg.Timeout > 0 {
		return context.WithTimeout(parent, cfg.Timeout)
	}
	return context.WithCancel(parent)
}
