package orchestrator

import (
	"context"

	"github.com/netsec-pkg/zkg/internal/source"
)

// Refresh re-fetches every configured source's index (§4.2, §6
// `refresh`). It holds the state-directory lock since a concurrent
// install must never resolve against a half-fetched index.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.withLock(ctx, func() error {
		for _, s := range e.cfg.Sources {
			if err := source.Refresh(ctx, e.cfg.Driver, s); err != nil {
				return err
			}
		}
		return nil
	})
}
