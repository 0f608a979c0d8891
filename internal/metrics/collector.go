// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/tokenfsm/automaton"
	"github.com/BaSui01/tokenfsm/decoding"
	"github.com/BaSui01/tokenfsm/types"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器，实现 decoding.Observer
type Collector struct {
	// 会话指标
	sessionsTotal   *prometheus.CounterVec
	sessionSteps    *prometheus.HistogramVec
	sessionDuration prometheus.Histogram

	// 步进指标
	stepsTotal      prometheus.Counter
	stepProbability prometheus.Histogram
	allowedPerStep  prometheus.Histogram

	// 打分指标
	scorerDuration prometheus.Histogram
	scorerFailures *prometheus.CounterVec

	// 自动机指标
	automatonStates      *prometheus.GaugeVec
	automatonTransitions *prometheus.GaugeVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses prometheus.Counter

	logger *zap.Logger
}

var _ decoding.Observer = (*Collector)(nil)

// NewCollector 创建指标收集器，指标注册到默认 Registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 会话指标
	c.sessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_sessions_total",
			Help:      "Total number of finished decoding sessions",
		},
		[]string{"outcome"},
	)

	c.sessionSteps = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_session_steps",
			Help:      "Generation steps per decoding session",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"outcome"},
	)

	c.sessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_session_duration_seconds",
			Help:      "Decoding session duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// 步进指标
	c.stepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_steps_total",
			Help:      "Total number of generation steps",
		},
	)

	c.stepProbability = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_step_probability",
			Help:      "Restricted probability of the selected token",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	c.allowedPerStep = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_allowed_tokens",
			Help:      "Number of allowed tokens at each step",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// 打分指标
	c.scorerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scorer_call_duration_seconds",
			Help:      "Scorer call duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	c.scorerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scorer_failures_total",
			Help:      "Total number of failed scorer calls",
		},
		[]string{"code"},
	)

	// 自动机指标
	c.automatonStates = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "automaton_states",
			Help:      "Number of states of a compiled automaton",
		},
		[]string{"fingerprint"},
	)

	c.automatonTransitions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "automaton_transitions",
			Help:      "Number of transitions of a compiled automaton",
		},
		[]string{"fingerprint"},
	)

	// 缓存指标
	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_cache_hits_total",
			Help:      "Total number of score cache hits",
		},
		[]string{"level"},
	)

	c.cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_cache_misses_total",
			Help:      "Total number of score cache misses",
		},
	)

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// =============================================================================
// 🎯 decoding.Observer
// =============================================================================

// ObserveScore 记录一次打分调用
func (c *Collector) ObserveScore(d time.Duration, err error) {
	c.scorerDuration.Observe(d.Seconds())
	if err != nil {
		code := string(types.GetErrorCode(err))
		if code == "" {
			code = "unknown"
		}
		c.scorerFailures.WithLabelValues(code).Inc()
	}
}

// ObserveStep 记录一次生成步骤
func (c *Collector) ObserveStep(ev decoding.StepEvent) {
	c.stepsTotal.Inc()
	c.stepProbability.Observe(ev.Probability)
	c.allowedPerStep.Observe(float64(ev.Allowed))
}

// ObserveResult 记录会话终止结果
func (c *Collector) ObserveResult(res *decoding.Result) {
	outcome := res.Outcome.String()
	c.sessionsTotal.WithLabelValues(outcome).Inc()
	c.sessionSteps.WithLabelValues(outcome).Observe(float64(res.Steps))
	c.sessionDuration.Observe(res.Duration.Seconds())
}

// =============================================================================
// 🔁 自动机与缓存
// =============================================================================

// RecordAutomaton 记录自动机规模
func (c *Collector) RecordAutomaton(a *automaton.Automaton) {
	fp := a.Fingerprint()
	c.automatonStates.WithLabelValues(fp).Set(float64(a.NumStates()))
	c.automatonTransitions.WithLabelValues(fp).Set(float64(a.NumTransitions()))
}

// RecordCache 累加缓存命中统计
func (c *Collector) RecordCache(localHits, remoteHits, misses int64) {
	c.cacheHits.WithLabelValues("local").Add(float64(localHits))
	c.cacheHits.WithLabelValues("remote").Add(float64(remoteHits))
	c.cacheMisses.Add(float64(misses))
}
