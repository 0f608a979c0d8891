// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, -1, cfg.Decoder.MaxSteps)
	assert.Equal(t, "char", cfg.Tokenizer.Kind)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tokenfsm.yaml")

	yamlContent := `
choices: ["401", "404"]

decoder:
  max_steps: 8
  selection: weighted-sample
  accept_policy: prefer-longest-accept
  seed: 42
  timeout: 5s

tokenizer:
  kind: tiktoken
  model: gpt-4o

scorer:
  kind: bias
  bias: [0.5, 1.5, -2]
  rate_limit: 20
  redis_cache: true

redis:
  addr: "redis.example.com:6379"
  password: "secret"
  db: 1

history:
  enabled: true
  driver: postgres
  dsn: "host=db user=tokenfsm"

log:
  level: "debug"
  format: "json"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"401", "404"}, cfg.Choices)
	assert.Equal(t, 8, cfg.Decoder.MaxSteps)
	assert.Equal(t, "weighted-sample", cfg.Decoder.Selection)
	assert.Equal(t, "prefer-longest-accept", cfg.Decoder.AcceptPolicy)
	assert.Equal(t, uint64(42), cfg.Decoder.Seed)
	assert.Equal(t, 5*time.Second, cfg.Decoder.Timeout)
	// 未出现在 YAML 中的字段保留默认值
	assert.Equal(t, 4, cfg.Decoder.Concurrency)

	assert.Equal(t, "tiktoken", cfg.Tokenizer.Kind)
	assert.Equal(t, []float64{0.5, 1.5, -2}, cfg.Scorer.Bias)
	assert.Equal(t, 20.0, cfg.Scorer.RateLimit)
	assert.True(t, cfg.Scorer.RedisCache)

	assert.Equal(t, "redis.example.com:6379", cfg.Redis.Addr)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "postgres", cfg.History.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)

	assert.NoError(t, cfg.Validate())
}

func TestLoader_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("decoder: [unclosed"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("TOKENFSM_CHOICES", "yes, no")
	t.Setenv("TOKENFSM_DECODER_MAX_STEPS", "3")
	t.Setenv("TOKENFSM_DECODER_TIMEOUT", "250ms")
	t.Setenv("TOKENFSM_DECODER_SEED", "9")
	t.Setenv("TOKENFSM_TOKENIZER_ALPHABET", "abc")
	t.Setenv("TOKENFSM_SCORER_BIAS", "1, 2.5,3")
	t.Setenv("TOKENFSM_SCORER_CACHE_ENABLED", "false")
	t.Setenv("TOKENFSM_REDIS_ADDR", "env-redis:6379")
	t.Setenv("TOKENFSM_LOG_LEVEL", "warn")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"yes", "no"}, cfg.Choices)
	assert.Equal(t, 3, cfg.Decoder.MaxSteps)
	assert.Equal(t, 250*time.Millisecond, cfg.Decoder.Timeout)
	assert.Equal(t, uint64(9), cfg.Decoder.Seed)
	assert.Equal(t, "abc", cfg.Tokenizer.Alphabet)
	assert.Equal(t, []float64{1, 2.5, 3}, cfg.Scorer.Bias)
	assert.False(t, cfg.Scorer.CacheEnabled)
	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "tokenfsm.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
decoder:
  max_steps: 8
  selection: weighted-sample
`), 0644))

	t.Setenv("TOKENFSM_DECODER_MAX_STEPS", "2")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Decoder.MaxSteps)
	assert.Equal(t, "weighted-sample", cfg.Decoder.Selection)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_DECODER_MAX_STEPS", "6")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Decoder.MaxSteps)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("TOKENFSM_DECODER_MAX_STEPS", "many")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKENFSM_DECODER_MAX_STEPS")
}

func TestLoader_Validators(t *testing.T) {
	_, err := NewLoader().WithValidator(func(c *Config) error { return c.Validate() }).Load()
	assert.NoError(t, err)

	t.Setenv("TOKENFSM_SCORER_KIND", "oracle")
	_, err = NewLoader().WithValidator(func(c *Config) error { return c.Validate() }).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scorer.target")
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "negative budget", mutate: func(c *Config) { c.Decoder.MaxSteps = -2 }, wantErr: "max_steps"},
		{name: "unknown selection", mutate: func(c *Config) { c.Decoder.Selection = "beam" }, wantErr: "selection"},
		{name: "unknown policy", mutate: func(c *Config) { c.Decoder.AcceptPolicy = "shortest" }, wantErr: "accept_policy"},
		{name: "char without alphabet", mutate: func(c *Config) { c.Tokenizer.Alphabet = "" }, wantErr: "alphabet"},
		{name: "unknown tokenizer", mutate: func(c *Config) { c.Tokenizer.Kind = "bpe" }, wantErr: "tokenizer.kind"},
		{name: "bias without vector", mutate: func(c *Config) { c.Scorer.Kind = "bias" }, wantErr: "scorer.bias"},
		{name: "history driver", mutate: func(c *Config) {
			c.History.Enabled = true
			c.History.Driver = "oracle"
		}, wantErr: "history.driver"},
		{name: "sample rate", mutate: func(c *Config) { c.Telemetry.SampleRate = 2 }, wantErr: "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateAggregates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Decoder.Selection = "beam"
	cfg.Scorer.RateLimit = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selection")
	assert.Contains(t, err.Error(), "rate_limit")
}
