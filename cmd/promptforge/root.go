package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Strob0t/PromptForge/internal/adapter/promptapi"
	"github.com/Strob0t/PromptForge/internal/config"
	"github.com/Strob0t/PromptForge/internal/logger"
	"github.com/Strob0t/PromptForge/internal/service"
)

// app carries what every subcommand needs once config is loaded.
type app struct {
	configPath string
	logLevel   string

	cfg       *config.Config
	log       *slog.Logger
	closeLogs logger.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "promptforge",
		Short: "Prompt composition console",
		Long: `promptforge manages the personas, fragments and compositions that make
up the evaluation agent's prompt.

Modes:
  promptforge serve        Run the HTTP console
  promptforge persona ...  Manage personas from the command line
  promptforge watch        Follow prompt events on NATS`,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.closeLogs != nil {
				a.closeLogs.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default $PROMPTFORGE_CONFIG or "+config.DefaultConfigFile+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log", "", "Log level override: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(a),
		newPersonaCmd(a),
		newFragmentCmd(a),
		newCompositionCmd(a),
		newActiveCmd(a),
		newEvaluateCmd(a),
		newWatchCmd(a),
		newMigrateCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) load(logOut io.Writer) error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFrom(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg
	a.log, a.closeLogs = logger.New(cfg.Logging, logOut)
	slog.SetDefault(a.log)
	return nil
}

// newBackend returns a client for the configured prompt backend.
func newBackend(cfg *config.Config, log *slog.Logger) *promptapi.Client {
	opts := promptapi.Options{
		Timeout:      cfg.Backend.Timeout,
		EvaluatePath: cfg.Backend.EvaluatePath,
		Logger:       log,
	}
	if cfg.Backend.BreakerFailures > 0 {
		opts.Breaker = promptapi.NewBreaker(cfg.Backend.BreakerFailures, cfg.Backend.BreakerTimeout)
	}
	return promptapi.NewClient(cfg.Backend.URL, opts)
}

// prompts returns a prompt service without caching or events, for one-shot
// commands.
func (a *app) prompts() *service.PromptService {
	return service.NewPromptService(newBackend(a.cfg, a.log), a.log)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "promptforge", Build)
		},
	}
}
