// Copyright (c) tokenfsm Authors.
// Licensed under the MIT License.

/*
# 概述

包 scorer 提供 decoding.Scorer 的基础实现与中间件。解码器只依赖
decoding.Scorer 接口，本包负责把真实的打分后端包装成可缓存、可限流、
可重试的形式。

# 核心类型

  - BiasScorer — 与上下文无关的固定分数向量
  - OracleScorer — 偏好给定目标序列的打分器，用于驱动与测试
  - CachingScorer — 进程内 LRU + 可选 Redis 的多级缓存，
    键为 namespace + sha256(上下文)
  - RateLimitedScorer — 基于 golang.org/x/time/rate 的调用限流
  - RetryingScorer — 基于 llm/retry 的指数退避重试，
    只重试标记为可重试的错误
  - Middleware / Chain — 中间件组合

# 使用示例

	s := scorer.Chain(base,
		scorer.WithRetry(retry.NewRetryer(retry.DefaultPolicy(), logger)),
		scorer.WithRateLimit(rate.Limit(50), 10),
		scorer.WithCache(scorer.DefaultCacheConfig(), remote, logger),
	)
*/
package scorer
