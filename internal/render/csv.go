package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/mapflow/mapflow/internal/model"
)

// mappingRow is the CSV projection of one mapping entry.
type mappingRow struct {
	Label     string `csv:"label"`
	Account   string `csv:"matched_account"`
	Value     string `csv:"value"`
	Score     int    `csv:"score"`
	Tier      string `csv:"tier"`
	Category  string `csv:"category"`
	Rationale string `csv:"rationale"`
}

// CSVRenderer writes mapping results as a CSV file, one row per label
// in input order.
type CSVRenderer struct {
	logger *slog.Logger
}

// NewCSVRenderer creates a CSV renderer.
func NewCSVRenderer(logger *slog.Logger) *CSVRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVRenderer{logger: logger}
}

// Render implements Renderer.
func (r *CSVRenderer) Render(ctx context.Context, set *model.MappingSet, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	rows := make([]mappingRow, len(set.Entries))
	for i, entry := range set.Entries {
		rows[i] = mappingRow{
			Label:     entry.Label,
			Account:   entry.Account,
			Value:     entry.Value.String(),
			Score:     entry.Score,
			Tier:      string(entry.Tier),
			Category:  entry.Category,
			Rationale: entry.Rationale,
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			r.logger.Warn("failed to close output file", "path", path, "error", cerr)
		}
	}()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}

	r.logger.Info("wrote mapping results", "path", path, "rows", len(rows))
	return nil
}
