package ports

import (
	"context"

	"go.trai.ch/remap/internal/core/domain"
)

// SourceSetResolver infers reference map bindings from project source set
// layout: which injection configuration files exist under each source set's
// resource roots, and which reference map resource they pair with.
//
//go:generate mockgen -source=sourcesets.go -destination=mocks/mock_sourcesets.go -package=mocks
type SourceSetResolver interface {
	ResolveBindings(ctx context.Context, sets []domain.SourceSetSpec) ([]domain.ReferenceMapBinding, error)
}
