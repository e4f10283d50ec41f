// Package engine provides the core business logic for remsync operations.
//
// The engine is the orchestration layer between CLI commands and the
// lower-level packages: it reads the remote store once per invocation,
// builds the document tree, computes plans, and applies them over the
// transport. Nothing is mutated until a plan exists, and dry runs stop
// right after planning.
package engine

import (
	"context"
	"fmt"

	"github.com/danieljhkim/remsync/internal/clock"
	"github.com/danieljhkim/remsync/internal/config"
	"github.com/danieljhkim/remsync/internal/fsops"
	"github.com/danieljhkim/remsync/internal/store"
	"github.com/danieljhkim/remsync/internal/transport"
	"github.com/danieljhkim/remsync/internal/tree"
)

// Engine orchestrates all remsync operations.
// It is the main API surface called by the CLI.
type Engine struct {
	transport transport.Transport
	fs        fsops.FS
	clock     clock.Clock
	cfg       *config.Config
}

// New creates a new Engine with the given dependencies.
func New(t transport.Transport, fs fsops.FS, clk clock.Clock, cfg *config.Config) *Engine {
	return &Engine{
		transport: t,
		fs:        fs,
		clock:     clk,
		cfg:       cfg,
	}
}

// loadTree reads the remote store and reconstructs the document tree.
// The snapshot is immutable for the rest of the invocation.
func (e *Engine) loadTree(ctx context.Context) (*store.Snapshot, *tree.Tree, error) {
	snapshot, err := store.NewReader(e.transport, e.cfg.DocumentDir).Read(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read remote store: %w", err)
	}
	t, err := tree.Build(snapshot)
	if err != nil {
		return nil, nil, err
	}
	return snapshot, t, nil
}

// reload restarts the device's document viewer so the visible state picks
// up the applied changes. Idempotent on the device side.
func (e *Engine) reload(ctx context.Context) error {
	_, err := e.transport.Run(ctx, "systemctl restart xochitl")
	return err
}
