package ports

import (
	"context"

	"go.trai.ch/remap/internal/core/domain"
)

// MappingSource provides pre-parsed rename tables. The upstream mapping file
// format is an external concern; implementations only hand the pipeline a
// finished table for a namespace pair.
//
//go:generate mockgen -source=mappings.go -destination=mocks/mock_mappings.go -package=mocks
type MappingSource interface {
	Load(ctx context.Context, path, source, target string) (*domain.RenameTable, error)
}
