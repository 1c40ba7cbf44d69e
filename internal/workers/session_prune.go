package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// SessionPruner deletes browser sessions not seen since cutoff
type SessionPruner interface {
	PruneIdle(ctx context.Context, cutoff time.Time) (int64, error)
}

// HandlePruneSessions processes a sessions:prune task
func HandlePruneSessions(ctx context.Context, t *asynq.Task, pruner SessionPruner, idleTTL time.Duration, logger zerolog.Logger) error {
	if idleTTL <= 0 {
		logger.Debug().Msg("Session pruning disabled")
		return nil
	}

	cutoff := time.Now().Add(-idleTTL)
	pruned, err := pruner.PruneIdle(ctx, cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to prune browser sessions")
		return fmt.Errorf("failed to prune browser sessions: %w", err)
	}

	logger.Info().
		Int64("pruned", pruned).
		Time("cutoff", cutoff).
		Msg("Pruned idle browser sessions")

	return nil
}
