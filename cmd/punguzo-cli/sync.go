package main

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/app"
	"github.com/punguzo/mlm_backend/config"
	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/services"
)

var (
	syncLimit      int
	syncOffset     int
	syncFilterType string
)

var syncProductsCmd = &cobra.Command{
	Use:   "sync-products",
	Short: "Pull one page of the partner catalog into the product table",
	Long: `Pull one page of the partner catalog and merge it into local storage.

New external ids are inserted and existing products are updated only when a
synced field changed, so re-running the same page is a no-op.

Examples:
  punguzo-cli sync-products --limit 100 --filter-type wholesale
  punguzo-cli sync-products --limit 50 --offset 100`,
	RunE: runSyncProducts,
}

var recomputeMetricsCmd = &cobra.Command{
	Use:   "recompute-metrics",
	Short: "Recompute monthly views, sales, revenue and popularity for every product",
	RunE:  runRecomputeMetrics,
}

func init() {
	syncProductsCmd.Flags().IntVar(&syncLimit, "limit", 20, "page size, at least 10 and a multiple of 10")
	syncProductsCmd.Flags().IntVar(&syncOffset, "offset", 0, "page offset, a multiple of limit")
	syncProductsCmd.Flags().StringVar(&syncFilterType, "filter-type", "recently_sold",
		"recently_sold, wholesale, big_discount, recently_purchased or punguzo_special")
}

func bootstrap() (*app.App, error) {
	envErr := godotenv.Load()
	cfg := config.Load()
	if err := logging.InitLogger(cfg.IsProduction(), cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if envErr != nil {
		logging.Logger.Debug(".env file not found", zap.Error(envErr))
	}
	for _, warning := range cfg.Warnings {
		logging.Logger.Warn("config value ignored", zap.String("reason", warning))
	}
	return app.New(cfg)
}

func runSyncProducts(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.Sync()
	defer closeApp(a)

	result, err := a.CatalogSync.SyncProducts(cmd.Context(), services.FeedQuery{
		Limit:      syncLimit,
		Offset:     syncOffset,
		FilterType: syncFilterType,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "inserted %d, updated %d\n", result.InsertedCount, result.UpdatedCount)
	return nil
}

func runRecomputeMetrics(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.Sync()
	defer closeApp(a)

	count, err := a.Popularity.RecomputeAll(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "recomputed %d products\n", count)
	return nil
}

func closeApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Close(ctx)
}
