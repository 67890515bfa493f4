// Package app implements the application layer for remap.
package app

import (
	"context"

	"go.trai.ch/remap/internal/core/ports"
	"go.trai.ch/remap/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	scheduler    *scheduler.Scheduler
}

// New creates a new App instance.
func New(loader ports.ConfigLoader, sched *scheduler.Scheduler) *App {
	return &App{
		configLoader: loader,
		scheduler:    sched,
	}
}

// Run loads the batch configuration and remaps the named archives, or every
// archive in the batch when names is empty.
func (a *App) Run(ctx context.Context, configPath string, names []string) error {
	batch, err := a.configLoader.Load(configPath)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	if err := a.scheduler.Run(ctx, batch, names); err != nil {
		return zerr.Wrap(err, "remap execution failed")
	}
	return nil
}
