package ports

import "go.trai.ch/remap/internal/core/domain"

// ConfigLoader loads a batch configuration from disk.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	Load(path string) (*domain.Batch, error)
}
