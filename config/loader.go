// =============================================================================
// 📦 tokenfsm 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("tokenfsm.yaml").
//	    WithEnvPrefix("TOKENFSM").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 tokenfsm 的完整配置结构
type Config struct {
	// Choices 允许的输出文本，按顺序编译为自动机
	Choices []string `yaml:"choices" env:"CHOICES"`

	// Decoder 解码配置
	Decoder DecoderConfig `yaml:"decoder" env:"DECODER"`

	// Tokenizer 分词器配置
	Tokenizer TokenizerConfig `yaml:"tokenizer" env:"TOKENIZER"`

	// Scorer 打分器与中间件配置
	Scorer ScorerConfig `yaml:"scorer" env:"SCORER"`

	// Redis 打分缓存配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// History 运行历史存储配置
	History HistoryConfig `yaml:"history" env:"HISTORY"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// DecoderConfig 解码配置
type DecoderConfig struct {
	// 每个会话的步数预算，-1 表示使用自动机深度
	MaxSteps int `yaml:"max_steps" env:"MAX_STEPS"`
	// 选择策略: argmax, weighted-sample
	Selection string `yaml:"selection" env:"SELECTION"`
	// 接受策略: stop-on-first-accept, prefer-longest-accept
	AcceptPolicy string `yaml:"accept_policy" env:"ACCEPT_POLICY"`
	// weighted-sample 的随机种子
	Seed uint64 `yaml:"seed" env:"SEED"`
	// 批量解码的并发数，0 表示不限制
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY"`
	// 单次运行超时，0 表示不限制
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// TokenizerConfig 分词器配置
type TokenizerConfig struct {
	// 类型: char, tiktoken
	Kind string `yaml:"kind" env:"KIND"`
	// tiktoken 模型名（按最长前缀匹配编码）
	Model string `yaml:"model" env:"MODEL"`
	// tiktoken 编码名，设置后优先于 Model
	Encoding string `yaml:"encoding" env:"ENCODING"`
	// char 分词器的字母表，token id 即字符位置
	Alphabet string `yaml:"alphabet" env:"ALPHABET"`
}

// ScorerConfig 打分器配置
type ScorerConfig struct {
	// 类型: uniform, bias, oracle
	Kind string `yaml:"kind" env:"KIND"`
	// bias 打分器的固定分数，长度即词表大小
	Bias []float64 `yaml:"bias" env:"BIAS"`
	// oracle 打分器偏好的目标文本
	Target string `yaml:"target" env:"TARGET"`
	// 每秒调用上限，0 表示不限流
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	// 限流突发量
	Burst int `yaml:"burst" env:"BURST"`
	// 最大重试次数，0 表示不重试
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 首次重试延迟
	RetryDelay time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
	// 是否启用进程内缓存
	CacheEnabled bool `yaml:"cache_enabled" env:"CACHE_ENABLED"`
	// 进程内缓存条目上限
	CacheSize int `yaml:"cache_size" env:"CACHE_SIZE"`
	// 进程内缓存 TTL
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
	// 是否使用 Redis 作为二级缓存
	RedisCache bool `yaml:"redis_cache" env:"REDIS_CACHE"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 缓存 TTL
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// HistoryConfig 运行历史存储配置
type HistoryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 驱动类型: sqlite, postgres, mysql
	Driver string `yaml:"driver" env:"DRIVER"`
	// 连接字符串
	DSN string `yaml:"dsn" env:"DSN"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// /metrics 监听地址，为空时只采集不暴露
	Addr string `yaml:"addr" env:"ADDR"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "TOKENFSM",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置，文件不存在时保留默认值
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串或浮点数切片
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch field.Type().Elem().Kind() {
		case reflect.String:
			field.Set(reflect.ValueOf(parts))
		case reflect.Float64:
			floats := make([]float64, len(parts))
			for i, p := range parts {
				f, err := strconv.ParseFloat(p, 64)
				if err != nil {
					return err
				}
				floats[i] = f
			}
			field.Set(reflect.ValueOf(floats))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置，汇总所有错误
func (c *Config) Validate() error {
	var errs []string

	if c.Decoder.MaxSteps < -1 {
		errs = append(errs, "decoder.max_steps must be -1 or non-negative")
	}
	switch c.Decoder.Selection {
	case "argmax", "weighted-sample":
	default:
		errs = append(errs, fmt.Sprintf("unknown decoder.selection %q", c.Decoder.Selection))
	}
	switch c.Decoder.AcceptPolicy {
	case "stop-on-first-accept", "prefer-longest-accept":
	default:
		errs = append(errs, fmt.Sprintf("unknown decoder.accept_policy %q", c.Decoder.AcceptPolicy))
	}
	if c.Decoder.Concurrency < 0 {
		errs = append(errs, "decoder.concurrency must not be negative")
	}

	switch c.Tokenizer.Kind {
	case "char":
		if c.Tokenizer.Alphabet == "" {
			errs = append(errs, "tokenizer.alphabet is required for the char tokenizer")
		}
	case "tiktoken":
	default:
		errs = append(errs, fmt.Sprintf("unknown tokenizer.kind %q", c.Tokenizer.Kind))
	}

	switch c.Scorer.Kind {
	case "uniform":
	case "bias":
		if len(c.Scorer.Bias) == 0 {
			errs = append(errs, "scorer.bias is required for the bias scorer")
		}
	case "oracle":
		if c.Scorer.Target == "" {
			errs = append(errs, "scorer.target is required for the oracle scorer")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown scorer.kind %q", c.Scorer.Kind))
	}
	if c.Scorer.RateLimit < 0 {
		errs = append(errs, "scorer.rate_limit must not be negative")
	}
	if c.Scorer.MaxRetries < 0 {
		errs = append(errs, "scorer.max_retries must not be negative")
	}

	if c.History.Enabled {
		switch c.History.Driver {
		case "sqlite", "postgres", "mysql":
		default:
			errs = append(errs, fmt.Sprintf("unsupported history.driver %q", c.History.Driver))
		}
		if c.History.DSN == "" {
			errs = append(errs, "history.dsn is required when history is enabled")
		}
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
