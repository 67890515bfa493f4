package scheduler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/remap/internal/adapters/logger"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/remap/internal/adapters/mappings"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/remap/internal/adapters/sourcesets" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/remap/internal/core/ports"
	"go.trai.ch/remap/internal/engine/pipeline"
	"go.trai.ch/remap/internal/engine/registry"
)

// NodeID is the unique identifier for the scheduler Graft node.
const NodeID graft.ID = "engine.scheduler"

func init() {
	graft.Register(graft.Node[*Scheduler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			registry.NodeID,
			pipeline.NodeID,
			mappings.NodeID,
			sourcesets.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Scheduler, error) {
			reg, err := graft.Dep[*registry.Registry](ctx)
			if err != nil {
				return nil, err
			}
			pipe, err := graft.Dep[*pipeline.Pipeline](ctx)
			if err != nil {
				return nil, err
			}
			source, err := graft.Dep[ports.MappingSource](ctx)
			if err != nil {
				return nil, err
			}
			resolver, err := graft.Dep[ports.SourceSetResolver](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewScheduler(reg, pipe, source, resolver, log), nil
		},
	})
}
