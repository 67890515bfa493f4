package mappings

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/remap/internal/adapters/logger"
	"go.trai.ch/remap/internal/core/ports"
)

const NodeID graft.ID = "adapter.mappings"

func init() {
	graft.Register(graft.Node[ports.MappingSource]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.MappingSource, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewSource(log), nil
		},
	})
}
