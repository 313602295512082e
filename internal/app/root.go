package app

import (
	"context"

	"github.com/oshokin/crateflow/internal/config"
	"github.com/oshokin/crateflow/internal/logger"
	"github.com/oshokin/crateflow/internal/orchestrator"
)

// ExecuteRootCommand is the entry point for a download run: it builds an
// Orchestrator, enqueues every url, resolves the pending list into media,
// rips everything, and tears down every client session on the way out.
func ExecuteRootCommand(ctx context.Context, cfg *config.Config, urls []string) {
	o, err := orchestrator.New(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize orchestrator: %v", err)
	}

	// Ensure teardown always runs, even on panic.
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "Panic recovered: %v", r)
		}

		o.Teardown(ctx)
	}()

	if err = o.AddAll(ctx, urls); err != nil {
		logger.Errorf(ctx, "Failed to enqueue urls: %v", err)
	}

	if err = o.Resolve(ctx); err != nil {
		logger.Errorf(ctx, "Failed to resolve pending items: %v", err)
	}

	o.Rip(ctx)
}
