package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/kiosk/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kiosk",
	Short: "Kiosk is the session engine of a hospital self-service kiosk",
	Long: `Kiosk keeps one state machine per touch-screen session, expires idle sessions
and hands out per-department queue numbers.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional .env file with KIOSK_* settings")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides KIOSK_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text, json); overrides KIOSK_LOG_FORMAT")
}

// newLogger builds the process logger, flags winning over configuration.
func newLogger(cmd *cobra.Command, level, format string) (*slog.Logger, error) {
	if f, _ := cmd.Flags().GetString("log-level"); f != "" {
		level = f
	}
	if f, _ := cmd.Flags().GetString("log-format"); f != "" {
		format = f
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(cmd.ErrOrStderr(), lvl, logging.Format(format)), nil
}
