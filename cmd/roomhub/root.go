package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/roomhub/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "roomhub",
	Short: "roomhub hosts community randomizer rooms on top of a job-queue coordinator",
	Long: `roomhub binds upload/closure events for community randomizer rooms to
out-of-process validation and generation workers, coordinated through a
persistent priority work queue.

Available commands:
  serve        Run the queue reclaim daemons, catalog watcher, and telemetry server
  worker       Run the validation/generation worker pools
  migrate      Apply pending database migrations
  queue-stats  Print current queue counters`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
