package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	logx "github.com/Chative-commerce/server/pkg/logger"
)

// version is set at build time.
var version = "dev"

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "chative",
		Short:         "Chative - conversational commerce core for WhatsApp stores",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(newServeCmd(&envFile), newSeedCmd(&envFile))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logx.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}
