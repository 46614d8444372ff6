package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mapflow/mapflow/internal/common"
	"github.com/mapflow/mapflow/internal/engine"
	"github.com/mapflow/mapflow/internal/ingest"
	"github.com/mapflow/mapflow/internal/knowledge"
	"github.com/mapflow/mapflow/internal/model"
	"github.com/mapflow/mapflow/internal/oracle"
	"github.com/mapflow/mapflow/internal/render"
	"github.com/mapflow/mapflow/internal/storage"
)

func mapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map template labels onto current-period accounts",
		Long: `Reads line-item labels from a template file and account values from
an Excel export, matches every label to its best account under the
chosen strategy, and writes the scored mapping as CSV.`,
		RunE: runMap,
	}

	cmd.Flags().StringP("template", "t", "", "template label file (one label per line)")
	cmd.Flags().StringP("data", "d", "", "current-period Excel data file")
	cmd.Flags().StringP("output", "o", "mapping.csv", "output CSV path")
	cmd.Flags().StringP("strategy", "s", "hybrid", "matching strategy (fuzzy, category, hybrid)")
	cmd.Flags().Bool("refine", false, "run the oracle refinement pass over uncertain mappings")
	cmd.Flags().Bool("no-cache", false, "skip the mapping cache")
	cmd.Flags().String("sheet", "", "Excel sheet to read (default: first sheet)")

	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("data")

	_ = viper.BindPFlag("map.strategy", cmd.Flags().Lookup("strategy"))

	return cmd
}

func runMap(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	templatePath, _ := cmd.Flags().GetString("template")
	dataPath, _ := cmd.Flags().GetString("data")
	outputPath, _ := cmd.Flags().GetString("output")
	refine, _ := cmd.Flags().GetBool("refine")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	sheet, _ := cmd.Flags().GetString("sheet")

	strategy, err := engine.ParseStrategy(viper.GetString("map.strategy"))
	if err != nil {
		return err
	}

	templateBytes, err := os.ReadFile(templatePath)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("cannot read template file %s", templatePath), err)
	}
	dataBytes, err := os.ReadFile(dataPath)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("cannot read data file %s", dataPath), err)
	}

	var store *storage.SQLiteStore
	runKey := storage.RunKey(templateBytes, dataBytes, string(strategy))
	if !noCache {
		store, err = storage.NewSQLiteStore(cacheDBPath())
		if err != nil {
			logger.Warn("mapping cache unavailable, continuing without it", "error", err)
		} else {
			defer func() { _ = store.Close() }()

			if cached, cerr := store.GetRun(ctx, runKey); cerr == nil {
				logger.Info("using cached mapping run", "id", cached.ID)
				return writeOutput(ctx, logger, cached, cached.Stats(), outputPath)
			}
		}
	}

	labelExtractor := ingest.NewTextLabelExtractor(logger)
	labels, err := labelExtractor.ExtractLabels(ctx, templatePath)
	if err != nil {
		return common.NewUserError("failed to extract template labels", err)
	}

	accountExtractor := ingest.NewExcelExtractor(logger)
	accountExtractor.Sheet = sheet
	accounts, err := accountExtractor.ExtractAccounts(ctx, dataPath)
	if err != nil {
		return common.NewUserError("failed to extract account data", err)
	}

	kb := knowledge.New(knowledge.Config{
		OverlayPath: viper.GetString("knowledge.overlay"),
	}, logger)

	var refiner engine.Refiner
	if scorer := buildScorer(logger); scorer != nil {
		refiner = scorer
	}

	bar := progressbar.NewOptions(len(labels),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Matching labels..."),
	)

	cfg := engine.DefaultConfig()
	cfg.Progress = func(done, _ int) { _ = bar.Set(done) }

	eng := engine.New(kb, refiner, cfg, logger)

	set, err := eng.Match(ctx, ingest.LabelTexts(labels), accounts, strategy)
	if err != nil {
		return fmt.Errorf("mapping failed: %w", err)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	stats := eng.Validate(set, accounts)

	if refine {
		if refiner == nil {
			logger.Warn("refinement requested but no oracle configured")
		} else {
			refineStats := eng.RefineUncertain(ctx, set, accounts)
			stats.OracleCalls = refineStats.OracleCalls
			stats.OracleFailures = refineStats.OracleFailures
			stats = mergeStats(eng.Validate(set, accounts), stats)
		}
	}

	if store != nil {
		if err := store.PutRun(ctx, runKey, set); err != nil {
			logger.Warn("failed to cache mapping run", "error", err)
		}
	}

	return writeOutput(ctx, logger, set, stats, outputPath)
}

// mergeStats keeps the oracle counters from a prior pass when
// re-validating after refinement.
func mergeStats(fresh, prior model.RunStats) model.RunStats {
	fresh.OracleCalls = prior.OracleCalls
	fresh.OracleFailures = prior.OracleFailures
	return fresh
}

func writeOutput(ctx context.Context, logger *slog.Logger, set *model.MappingSet, stats model.RunStats, outputPath string) error {
	renderer := render.NewCSVRenderer(logger)
	if err := renderer.Render(ctx, set, outputPath); err != nil {
		return common.NewUserError(fmt.Sprintf("cannot write output to %s", outputPath), err)
	}
	render.WriteSummary(os.Stdout, set, stats)
	return nil
}

// buildScorer creates the oracle scorer from configuration, or nil
// when no API key is set. The engine runs fine without one.
func buildScorer(logger *slog.Logger) *oracle.Scorer {
	apiKey := viper.GetString("oracle.api_key")
	if apiKey == "" {
		logger.Debug("no oracle API key configured, matching runs without refinement")
		return nil
	}

	models := viper.GetStringSlice("oracle.models")
	if len(models) == 0 {
		models = []string{"anthropic/claude-sonnet-4", "openai/gpt-4o-mini"}
	}

	cfg := oracle.Config{
		BaseURL:     viper.GetString("oracle.base_url"),
		APIKey:      apiKey,
		Models:      models,
		MaxRetries:  viper.GetInt("oracle.max_retries"),
		RetryDelay:  viper.GetDuration("oracle.retry_delay"),
		CallTimeout: viper.GetDuration("oracle.call_timeout"),
		CacheTTL:    viper.GetDuration("oracle.cache_ttl"),
		RateLimit:   viper.GetInt("oracle.rate_limit"),
		Temperature: viper.GetFloat64("oracle.temperature"),
		MaxTokens:   viper.GetInt("oracle.max_tokens"),
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 60 * time.Second
	}

	scorer, err := oracle.NewScorer(cfg, logger)
	if err != nil {
		logger.Warn("failed to create oracle scorer, continuing without it", "error", err)
		return nil
	}
	return scorer
}
