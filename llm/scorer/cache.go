package scorer

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/tokenfsm/decoding"
	"github.com/BaSui01/tokenfsm/internal/cache"
)

// RemoteCache is the second cache level. *cache.Manager implements it.
type RemoteCache interface {
	GetVector(ctx context.Context, key string) ([]float64, error)
	SetVector(ctx context.Context, key string, scores []float64, ttl time.Duration) error
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Namespace    string        // 键命名空间，通常为模型名 + 自动机指纹
	LocalMaxSize int           // 本地缓存最大条目数
	LocalTTL     time.Duration // 本地缓存 TTL
	RemoteTTL    time.Duration // Redis 缓存 TTL
}

// DefaultCacheConfig 默认配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Namespace:    "default",
		LocalMaxSize: 4096,
		LocalTTL:     5 * time.Minute,
		RemoteTTL:    time.Hour,
	}
}

// CacheStats 缓存命中统计
type CacheStats struct {
	LocalHits  int64
	RemoteHits int64
	Misses     int64
	Size       int
}

// CachingScorer memoizes score vectors by context. Scorers are pure
// functions of their context, so a cached vector is always valid for the
// same namespace.
type CachingScorer struct {
	base   decoding.Scorer
	local  *lruCache
	remote RemoteCache
	config CacheConfig
	logger *zap.Logger

	localHits  atomic.Int64
	remoteHits atomic.Int64
	misses     atomic.Int64
}

// NewCachingScorer wraps base. remote may be nil.
func NewCachingScorer(base decoding.Scorer, config CacheConfig, remote RemoteCache, logger *zap.Logger) *CachingScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultCacheConfig()
	if config.LocalMaxSize <= 0 {
		config.LocalMaxSize = def.LocalMaxSize
	}
	if config.LocalTTL <= 0 {
		config.LocalTTL = def.LocalTTL
	}
	if config.RemoteTTL <= 0 {
		config.RemoteTTL = def.RemoteTTL
	}
	return &CachingScorer{
		base:   base,
		local:  newLRUCache(config.LocalMaxSize, config.LocalTTL),
		remote: remote,
		config: config,
		logger: logger.With(zap.String("component", "score_cache")),
	}
}

// WithCache returns a caching middleware.
func WithCache(config CacheConfig, remote RemoteCache, logger *zap.Logger) Middleware {
	return func(s decoding.Scorer) decoding.Scorer {
		return NewCachingScorer(s, config, remote, logger)
	}
}

// Key returns the cache key of a context.
func (c *CachingScorer) Key(tokens []int) string {
	h := sha256.New()
	var buf [8]byte
	for _, tok := range tokens {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(tok)))
		h.Write(buf[:])
	}
	return c.config.Namespace + ":" + hex.EncodeToString(h.Sum(nil))
}

func (c *CachingScorer) Score(ctx context.Context, tokens []int) ([]float64, error) {
	key := c.Key(tokens)
	vocab := c.base.VocabSize()

	if scores, ok := c.local.get(key); ok {
		c.localHits.Add(1)
		return slices.Clone(scores), nil
	}

	if c.remote != nil {
		scores, err := c.remote.GetVector(ctx, key)
		switch {
		case err == nil && len(scores) == vocab:
			c.remoteHits.Add(1)
			c.local.set(key, scores)
			return slices.Clone(scores), nil
		case err == nil:
			c.logger.Warn("ignoring cached vector of wrong length",
				zap.String("key", key), zap.Int("len", len(scores)), zap.Int("vocab", vocab))
		case cache.IsCacheMiss(err):
		default:
			c.logger.Warn("remote cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	c.misses.Add(1)
	scores, err := c.base.Score(ctx, tokens)
	if err != nil {
		return nil, err
	}
	// Wrong-length vectors are returned for the decoder to reject, never cached.
	if len(scores) != vocab {
		return scores, nil
	}

	stored := slices.Clone(scores)
	c.local.set(key, stored)
	if c.remote != nil {
		if err := c.remote.SetVector(ctx, key, stored, c.config.RemoteTTL); err != nil {
			c.logger.Warn("remote cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return scores, nil
}

func (c *CachingScorer) VocabSize() int { return c.base.VocabSize() }

// Stats 返回命中统计
func (c *CachingScorer) Stats() CacheStats {
	return CacheStats{
		LocalHits:  c.localHits.Load(),
		RemoteHits: c.remoteHits.Load(),
		Misses:     c.misses.Load(),
		Size:       c.local.len(),
	}
}
