package sourcesets

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/remap/internal/adapters/logger"
	"go.trai.ch/remap/internal/core/ports"
)

const NodeID graft.ID = "adapter.sourcesets"

func init() {
	graft.Register(graft.Node[ports.SourceSetResolver]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.SourceSetResolver, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewResolver(log), nil
		},
	})
}
