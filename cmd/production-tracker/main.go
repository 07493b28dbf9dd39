package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"production-tracker/internal/common/config"
	"production-tracker/internal/common/logger"
)

var (
	cfgPath  string
	logLevel string

	// cfg is loaded once by rootCmd before any subcommand runs.
	cfg config.App
)

var rootCmd = &cobra.Command{
	Use:   "production-tracker",
	Short: "Production order tracking services",
	Long: `production-tracker runs the services that follow a sales order through the
production line: the tracking API with the status view, the stage recorder fed
by the shop floor kiosks, the order registration API and the notification
subscriber.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			if found, err := config.FindConfig(); err == nil {
				path = found
			}
		}
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = c
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		return logger.SetLevel(cfg.LogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug | info | warn | error (overrides config)")

	rootCmd.AddCommand(trackingCmd, recorderCmd, orderCmd, notifyCmd, serveCmd, renderCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}
