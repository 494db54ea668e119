package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"unityarchitect/config"
	"unityarchitect/logging"
)

var (
	configPath string
	logCloser  io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "unityarchitect",
	Short: "Unity C# script reviewer",
	Long: `unityarchitect scans Unity C# scripts for known performance and logic
anti-patterns and asks a language model for a refactoring roadmap.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadConfig(configPath); err != nil {
			return err
		}
		logCloser = logging.InitLogger(config.AppConfig.Logging)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ./config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
