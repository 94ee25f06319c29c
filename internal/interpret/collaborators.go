package interpret

import (
	"context"

	"loadstone/internal/analysis"
	"loadstone/internal/salvage"
)

// Exporter is the file-export collaborator. It consumes a finished
// Result and persists it; formats and destinations are its business.
type Exporter interface {
	Export(ctx context.Context, res *Result) error
}

// Plotter is the plotting collaborator. It consumes extracted data and
// the recovered interpretations; rendering is its business.
type Plotter interface {
	Plot(data *analysis.ExtractedData, rec *salvage.Result) error
}
