package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/tokenfsm"
	"github.com/BaSui01/tokenfsm/automaton"
	"github.com/BaSui01/tokenfsm/config"
)

// rootOptions 所有子命令共享的参数
type rootOptions struct {
	configPath string
	choices    []string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "tokenfsm",
		Short:         "Constrain token generation to a fixed set of strings",
		Long:          `tokenfsm compiles allowed strings into a token automaton and decodes through it, one scored step at a time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to config file (YAML)")
	flags.StringArrayVar(&opts.choices, "choice", nil, "Allowed output string (repeatable, overrides config choices)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newRunCmd(opts),
		newInspectCmd(opts),
		newHistoryCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load 加载配置并应用全局参数
func (o *rootOptions) load() (*config.Config, error) {
	loader := config.NewLoader()
	if o.configPath != "" {
		loader = loader.WithConfigPath(o.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if len(o.choices) > 0 {
		cfg.Choices = o.choices
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

var errNoChoices = errors.New("no choices: set choices in the config file or pass --choice")

// compile 按配置构建分词器并编译允许集合
func compile(cfg *config.Config, logger *zap.Logger) (*tokenfsm.Choices, error) {
	if len(cfg.Choices) == 0 {
		return nil, errNoChoices
	}
	tok, err := buildTokenizer(cfg.Tokenizer)
	if err != nil {
		return nil, err
	}
	choices, err := tokenfsm.Compile(tok, cfg.Choices, automaton.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("compile choices: %w", err)
	}
	return choices, nil
}
