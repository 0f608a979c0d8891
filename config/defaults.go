// =============================================================================
// 📦 tokenfsm 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Decoder:   DefaultDecoderConfig(),
		Tokenizer: DefaultTokenizerConfig(),
		Scorer:    DefaultScorerConfig(),
		Redis:     DefaultRedisConfig(),
		History:   DefaultHistoryConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultDecoderConfig 返回默认解码配置
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		MaxSteps:     -1,
		Selection:    "argmax",
		AcceptPolicy: "stop-on-first-accept",
		Seed:         1,
		Concurrency:  4,
		Timeout:      30 * time.Second,
	}
}

// DefaultTokenizerConfig 返回默认分词器配置
func DefaultTokenizerConfig() TokenizerConfig {
	return TokenizerConfig{
		Kind:     "char",
		Model:    "gpt-4o",
		Alphabet: "0123456789",
	}
}

// DefaultScorerConfig 返回默认打分器配置
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Kind:         "uniform",
		Burst:        1,
		RetryDelay:   100 * time.Millisecond,
		CacheEnabled: true,
		CacheSize:    4096,
		CacheTTL:     5 * time.Minute,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		KeyPrefix:    "tokenfsm:scores:",
		TTL:          time.Hour,
	}
}

// DefaultHistoryConfig 返回默认运行历史配置
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Enabled:         false,
		Driver:          "sqlite",
		DSN:             "tokenfsm.db",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "tokenfsm",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "tokenfsm",
		Addr:      "",
	}
}
