package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Strob0t/interviewlab/internal/adapter/recordstore"
	"github.com/Strob0t/interviewlab/internal/adapter/storage"
	"github.com/Strob0t/interviewlab/internal/config"
	"github.com/Strob0t/interviewlab/internal/logger"
)

// Version is set at build time via ldflags.
var Version = "dev"

type rootOptions struct {
	configFile string
	format     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "interviewlab",
		Short: "Run, replay and score AI-led interviews",
		Long: `InterviewLab drives conversations between an interviewer agent and either
a human or a simulated persona, then scores the transcript with an evaluator
agent against configurable criteria.

Runs, prompts, profiles and settings live in a durable store: a local
directory, a blob store or a NATS key-value bucket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", config.DefaultConfigFile, "path to the YAML config file")
	root.PersistentFlags().StringVar(&opts.format, "format", "auto", "output format: auto, table, json")
	root.SetVersionTemplate("interviewlab {{.Version}}\n")

	root.AddCommand(
		newServeCmd(opts),
		newRunsCmd(opts),
		newPromptsCmd(opts),
		newBackendCmd(opts),
	)
	return root
}

// env is the store stack shared by the subcommands.
type env struct {
	cfg    *config.Config
	opened *storage.Opened
	store  *recordstore.Store
}

func (e *env) close() {
	if err := e.opened.Close(); err != nil {
		slog.Warn("store close failed", "error", err)
	}
}

// setup loads the configuration and installs the structured logger. The
// returned func flushes the logger.
func (o *rootOptions) setup() (*config.Config, func(), error) {
	cfg, err := config.LoadFrom(o.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, closer := logger.New(cfg.Logging)
	slog.SetDefault(log)
	return cfg, closer.Close, nil
}

// openEnv opens the backend selected by cfg and wraps it in the typed store.
func openEnv(ctx context.Context, cfg *config.Config, sopts storage.Options) (*env, error) {
	opened, err := storage.Open(ctx, cfg, sopts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &env{
		cfg:    cfg,
		opened: opened,
		store:  recordstore.New(opened.Backend, cfg.Orchestrator.SettingsTTL),
	}, nil
}

// withEnv runs fn against an opened store and releases it afterwards.
func (o *rootOptions) withEnv(ctx context.Context, fn func(*env) error) error {
	cfg, flush, err := o.setup()
	if err != nil {
		return err
	}
	defer flush()
	e, err := openEnv(ctx, cfg, storage.Options{})
	if err != nil {
		return err
	}
	defer e.close()
	return fn(e)
}
