package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/tokenfsm"
	"github.com/BaSui01/tokenfsm/config"
	"github.com/BaSui01/tokenfsm/decoding"
	"github.com/BaSui01/tokenfsm/internal/metrics"
	"github.com/BaSui01/tokenfsm/internal/server"
	"github.com/BaSui01/tokenfsm/internal/store"
	"github.com/BaSui01/tokenfsm/internal/telemetry"
)

const tracerName = "github.com/BaSui01/tokenfsm/cmd/tokenfsm"

type runOptions struct {
	prompt       string
	repeat       int
	output       string
	maxSteps     int
	selection    string
	acceptPolicy string
	seed         uint64
	scorerKind   string
	target       string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Decode through the compiled choices",
		Long: `Compiles the choices, builds the configured scorer stack and runs one
session per repetition. Accepted sessions print the generated text.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runDecode(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.prompt, "prompt", "p", "", "Prompt text passed to the scorer as context")
	f.IntVarP(&opts.repeat, "repeat", "n", 1, "Number of independent sessions")
	f.StringVarP(&opts.output, "output", "o", "text", "Output format: text, json")
	f.IntVar(&opts.maxSteps, "max-steps", -1, "Step budget per session (-1 uses the automaton depth)")
	f.StringVar(&opts.selection, "selection", "", "Selection policy: argmax, weighted-sample")
	f.StringVar(&opts.acceptPolicy, "accept-policy", "", "Accept policy: stop-on-first-accept, prefer-longest-accept")
	f.Uint64Var(&opts.seed, "seed", 0, "Seed for weighted-sample")
	f.StringVar(&opts.scorerKind, "scorer", "", "Scorer: uniform, bias, oracle")
	f.StringVar(&opts.target, "target", "", "Target text of the oracle scorer")
	return cmd
}

// apply 命令行参数覆盖配置（仅限显式设置的参数）
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("max-steps") {
		cfg.Decoder.MaxSteps = o.maxSteps
	}
	if f.Changed("selection") {
		cfg.Decoder.Selection = o.selection
	}
	if f.Changed("accept-policy") {
		cfg.Decoder.AcceptPolicy = o.acceptPolicy
	}
	if f.Changed("seed") {
		cfg.Decoder.Seed = o.seed
	}
	if f.Changed("scorer") {
		cfg.Scorer.Kind = o.scorerKind
	}
	if f.Changed("target") {
		cfg.Scorer.Target = o.target
	}
}

func runDecode(ctx context.Context, out io.Writer, cfg *config.Config, opts *runOptions) error {
	if opts.repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1, got %d", opts.repeat)
	}
	if opts.output != "text" && opts.output != "json" {
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	choices, err := compile(cfg, logger)
	if err != nil {
		return err
	}
	prompt, err := choices.EncodePrompt(opts.prompt)
	if err != nil {
		return err
	}

	providers, err := telemetry.Init(cfg.Telemetry, logger, telemetry.AutomatonAttributes(
		choices.Tokenizer().Name(), choices.Fingerprint(),
		choices.Automaton().NumStates(), len(choices.Texts()))...)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() { _ = providers.Shutdown(context.Background()) }()

	stack, err := buildScorer(cfg, choices, len(prompt), logger)
	if err != nil {
		return err
	}
	defer func() { _ = stack.Close() }()

	var observers []decoding.Observer
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
		collector.RecordAutomaton(choices.Automaton())
		observers = append(observers, collector)
	}

	var history *store.Store
	if cfg.History.Enabled {
		history, err = store.Open(ctx, cfg.History, logger)
		if err != nil {
			return err
		}
		defer func() { _ = history.Close() }()
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr != "" {
		srv := startMetricsServer(cfg.Metrics.Addr, stack, history, logger)
		if srv != nil {
			defer func() { _ = srv.Shutdown(context.Background()) }()
		}
	}

	dopts, err := decoderOptions(cfg.Decoder, logger, providers.Tracer(tracerName), observers...)
	if err != nil {
		return err
	}
	d, err := choices.Decoder(stack.scorer, dopts...)
	if err != nil {
		return err
	}

	runCtx, cancel := runContext(ctx, cfg.Decoder)
	defer cancel()

	gens, err := generate(runCtx, choices, d, opts.prompt, prompt, opts.repeat, cfg.Decoder.Concurrency)
	if err != nil {
		return err
	}

	if collector != nil && stack.cache != nil {
		st := stack.cache.Stats()
		collector.RecordCache(st.LocalHits, st.RemoteHits, st.Misses)
	}

	for _, g := range gens {
		if history != nil {
			run := store.NewRun(g.Result, choices.Fingerprint(), g.Prompt, g.Text)
			if err := history.Record(ctx, run); err != nil {
				logger.Warn("failed to record run", zap.Error(err))
			}
		}
		if err := printGeneration(out, opts.output, g); err != nil {
			return err
		}
	}
	return nil
}

// generate 单次运行走 Generate，多次运行走 DecodeBatch 并发解码
func generate(ctx context.Context, choices *tokenfsm.Choices, d *decoding.Decoder,
	promptText string, prompt []int, repeat, concurrency int) ([]*tokenfsm.Generation, error) {
	if repeat == 1 {
		g, err := choices.Generate(ctx, d, promptText)
		if err != nil {
			return nil, err
		}
		return []*tokenfsm.Generation{g}, nil
	}

	prompts := make([][]int, repeat)
	for i := range prompts {
		prompts[i] = prompt
	}
	results, err := decoding.DecodeBatch(ctx, d, prompts, concurrency)
	if err != nil {
		return nil, err
	}

	gens := make([]*tokenfsm.Generation, len(results))
	for i, res := range results {
		gens[i] = &tokenfsm.Generation{Result: res, Prompt: prompt}
		if res.Accepted() {
			if gens[i].Text, err = choices.Detokenize(res); err != nil {
				return nil, err
			}
		}
	}
	return gens, nil
}

func printGeneration(out io.Writer, format string, g *tokenfsm.Generation) error {
	if format == "json" {
		return json.NewEncoder(out).Encode(g)
	}
	_, err := fmt.Fprintf(out, "%s\t%q\t%d steps\n", g.Outcome, g.Text, g.Steps)
	return err
}

func startMetricsServer(addr string, stack *scorerStack, history *store.Store, logger *zap.Logger) *server.Manager {
	checks := map[string]server.HealthCheck{}
	if stack.redis != nil {
		checks["redis"] = stack.redis.Ping
	}
	if history != nil {
		checks["history"] = history.Ping
	}

	cfg := server.DefaultConfig()
	cfg.Addr = addr
	srv := server.NewManager(server.NewHandler(prometheus.DefaultGatherer, checks), cfg, logger)
	if err := srv.Start(); err != nil {
		logger.Warn("metrics server not started", zap.Error(err))
		return nil
	}
	return srv
}
