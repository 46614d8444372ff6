// Package ingest extracts template labels and account data from input
// files. Each file format gets its own extractor behind a small
// interface so the pipeline never cares where labels or accounts came
// from.
package ingest

import (
	"context"

	"github.com/mapflow/mapflow/internal/model"
)

// LabelExtractor pulls line-item labels from a prior-period template.
type LabelExtractor interface {
	ExtractLabels(ctx context.Context, path string) ([]model.Label, error)
}

// AccountExtractor pulls named account values from a current-period
// data source.
type AccountExtractor interface {
	ExtractAccounts(ctx context.Context, path string) (*model.AccountSet, error)
}
