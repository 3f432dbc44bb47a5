package main

import (
	"os"

	_ "codenames/pkg/channels/autoload" // registers channels
	_ "codenames/pkg/llm/autoload"      // registers LLM providers

	"github.com/spf13/cobra"
)

var (
	configPath string
	systemPath string
)

var rootCmd = &cobra.Command{
	Use:          "codenames",
	Short:        "Codenames server with LLM agents in any seat",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "application config file")
	rootCmd.PersistentFlags().StringVar(&systemPath, "system", "system.json", "hot-reloadable system config file")
	rootCmd.AddCommand(serveCmd, playCmd, replayCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
