// Package render writes mapping results to output formats. The PDF
// surface stays behind the Renderer interface; the built-in renderers
// cover CSV files and console summaries.
package render

import (
	"context"

	"github.com/mapflow/mapflow/internal/model"
)

// Renderer writes one mapping run to a destination path.
type Renderer interface {
	Render(ctx context.Context, set *model.MappingSet, path string) error
}
