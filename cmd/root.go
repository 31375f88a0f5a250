package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lazydom/internal/config"
	"github.com/xkilldash9x/lazydom/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// osExit is swapped out in tests.
var osExit = os.Exit

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	observability.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		driver  string
	)

	cmd := &cobra.Command{
		Use:           "lazydom",
		Short:         "lazydom resolves page elements lazily and calls page scripts through typed proxies.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.New(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if driver != "" {
				cfg.SetBrowserDriver(driver)
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("invalid --driver: %w", err)
				}
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting lazydom",
				zap.String("version", Version), zap.String("driver", cfg.Browser().Driver))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./lazydom.yaml)")
	cmd.PersistentFlags().StringVar(&driver, "driver", "", "browser driver: chromedp, playwright or static")
	cmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	cmd.AddCommand(newProbeCmd(), newCallCmd(), newVersionCmd())
	return cmd
}

// configFrom returns the configuration stored by the root pre-run hook.
func configFrom(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return cfg, nil
}
