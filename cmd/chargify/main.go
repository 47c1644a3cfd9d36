package main

import (
	"fmt"
	"os"

	"github.com/samvad-hq/chargify-go/internal/config"
	"github.com/samvad-hq/chargify-go/internal/logger"
	"github.com/samvad-hq/chargify-go/pkg/chargify"
	"github.com/spf13/cobra"
)

// runtime is the state shared by sub-commands once the root pre-run loaded it.
type runtime struct {
	cfg     *config.Config
	log     logger.Logger
	baseURL string
}

// flushLogs runs after every command, failed ones included.
var flushLogs = logger.Close

func main() {
	if err := run(NewRootCmd()); err != nil {
		fmt.Fprintf(os.Stderr, "chargify: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command) error {
	defer func() { _ = flushLogs() }()
	return cmd.Execute()
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	rt := &runtime{}

	rootCmd := &cobra.Command{
		Use:           "chargify",
		Short:         "Call the Chargify v2 API and receive Chargify Direct redirects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.Init(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			rt.cfg = cfg
			rt.log = log
			log.DebugObj("chargify cli starting", "config", cfg.Redacted())
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&rt.baseURL, "base-url", chargify.BaseURL, "API root (override for sandboxes and tests)")

	rootCmd.AddCommand(newRequestCmd(rt))
	rootCmd.AddCommand(newCallCmd(rt))
	rootCmd.AddCommand(newDirectCmd(rt))
	rootCmd.AddCommand(newServeCmd(rt))
	return rootCmd
}

func (rt *runtime) client() *chargify.Client {
	return chargify.New(rt.cfg.ClientSettings(),
		chargify.WithBaseURL(rt.baseURL),
		chargify.WithFormat(rt.cfg.Format),
		chargify.WithLogger(rt.log),
	)
}
