// Package pageforge is the embeddable entry point for driving a harvest
// run from another Go program, wrapping internal/engine.Engine behind a
// stable, minimal surface.
package pageforge

import (
	"context"
	"log/slog"

	"github.com/kestrel-labs/pageforge/internal/config"
	"github.com/kestrel-labs/pageforge/internal/engine"
	"github.com/kestrel-labs/pageforge/internal/types"
)

// Config is the root configuration type, re-exported so callers never
// need to import internal/config directly.
type Config = config.Config

// DefaultConfig returns a Config with the library's defaults applied.
func DefaultConfig() *Config { return config.DefaultConfig() }

// Harvester drives one harvest run.
type Harvester struct {
	eng *engine.Engine
}

// New validates cfg and constructs a Harvester, launching its browser
// driver. Call Run to start harvesting.
func New(cfg *Config, logger *slog.Logger) (*Harvester, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	eng, err := engine.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Harvester{eng: eng}, nil
}

// Run drives the Tab Scheduler over the Frontier, which New seeded from
// cfg.Engine.EntryURLs, until the run drains or ctx is cancelled.
func (h *Harvester) Run(ctx context.Context) error {
	return h.eng.Run(ctx)
}

// Census reports the current count of URLs by status.
func (h *Harvester) Census() map[types.URLStatus]int {
	return h.eng.Frontier().Snapshot()
}
