// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/remap/internal/adapters/config"
	_ "go.trai.ch/remap/internal/adapters/logger"
	_ "go.trai.ch/remap/internal/adapters/mappings"
	_ "go.trai.ch/remap/internal/adapters/sourcesets"
	_ "go.trai.ch/remap/internal/adapters/telemetry/progrock"
	// Register app and engine nodes.
	_ "go.trai.ch/remap/internal/app"
	_ "go.trai.ch/remap/internal/engine/pipeline"
	_ "go.trai.ch/remap/internal/engine/registry"
	_ "go.trai.ch/remap/internal/engine/scheduler"
)
