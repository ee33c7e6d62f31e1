// Package cmd implements the engram command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "engram",
	Short: "engram - a personal memory service with retrieval-grounded chat",
	Long: `engram stores personal memories, embeds them for semantic search,
and serves a chat API whose replies are grounded in the caller's own
memories.

Run "engram serve" to start the HTTP API server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
