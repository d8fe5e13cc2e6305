package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/odvcencio/roomhub/internal/generation"
	"github.com/odvcencio/roomhub/internal/queue"
	"github.com/odvcencio/roomhub/internal/validation"
)

var queueStatsDriver string

var queueStatsCmd = &cobra.Command{
	Use:   "queue-stats",
	Short: "Print current queue counters",
	RunE:  runQueueStats,
}

func init() {
	queueStatsCmd.Flags().StringVar(&queueStatsDriver, "queue-driver", "redis", "queue store backend: redis or memory")
	rootCmd.AddCommand(queueStatsCmd)
}

func runQueueStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openQueueStore(cfg, queueStatsDriver)
	if err != nil {
		return err
	}

	ctx := context.Background()
	vq := queue.New[validation.Params, validation.Result]("validation", store)
	gq := queue.New[generation.Params, generation.Result]("generation", store)

	vStats, err := vq.Stats(ctx)
	if err != nil {
		return fmt.Errorf("validation stats: %w", err)
	}
	gStats, err := gq.Stats(ctx)
	if err != nil {
		return fmt.Errorf("generation stats: %w", err)
	}

	rows := pterm.TableData{
		{"queue", "scheduled", "claimed", "succeeded", "failed", "errored"},
		{"validation", statCol(vStats.Scheduled), statCol(vStats.Claimed), statCol(vStats.Succeeded), statCol(vStats.Failed), statCol(vStats.Errored)},
		{"generation", statCol(gStats.Scheduled), statCol(gStats.Claimed), statCol(gStats.Succeeded), statCol(gStats.Failed), statCol(gStats.Errored)},
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func statCol(n int64) string {
	return strconv.FormatInt(n, 10)
}
