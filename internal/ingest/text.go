package ingest

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mapflow/mapflow/internal/common"
	"github.com/mapflow/mapflow/internal/model"
)

// TextLabelExtractor reads template labels from a plain text file, one
// label per line. Blank lines and lines starting with '#' are skipped.
// Useful when the template has already been exported from its original
// document, and as the reference implementation of LabelExtractor.
type TextLabelExtractor struct {
	logger *slog.Logger
}

// NewTextLabelExtractor creates a text-file label extractor.
func NewTextLabelExtractor(logger *slog.Logger) *TextLabelExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextLabelExtractor{logger: logger}
}

// ExtractLabels implements LabelExtractor.
func (t *TextLabelExtractor) ExtractLabels(ctx context.Context, path string) ([]model.Label, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			t.logger.Warn("failed to close label file", "path", path, "error", cerr)
		}
	}()

	var labels []model.Label
	line := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		labels = append(labels, model.Label{Text: text, Page: 1, Y: float64(line)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read label file: %w", err)
	}

	t.logger.Info("extracted labels from text file", "path", path, "labels", len(labels))

	if len(labels) == 0 {
		return nil, common.ErrNoLabels
	}
	return labels, nil
}

// LabelTexts projects the label captions in order, the form the
// matching engine consumes.
func LabelTexts(labels []model.Label) []string {
	texts := make([]string, len(labels))
	for i, l := range labels {
		texts[i] = l.Text
	}
	return texts
}
