package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "realtime-service",
	Short: "Realtime service: socket relay for sessions, leaderboard and social notifications",
	Long:  `HTTP + WebSocket API. Commands: api, migrate, seed, command, token.`,
	RunE:  runAPI, // default: run API (same as "realtime-service api")
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
}

// Execute runs the root command and returns the error (for main to log.Fatal).
func Execute() error {
	return rootCmd.Execute()
}
