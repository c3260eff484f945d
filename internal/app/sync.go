package app

import (
	"context"
	"errors"
)

// Sync replicates the local data tree to the configured network destinations
// without running a collection pass.
func (a *App) Sync(ctx context.Context) error {
	replicator := a.newReplicator()
	if !replicator.Enabled() {
		return errors.New("network.dirs nao configurado")
	}
	_, err := replicator.Replicate(a.Config.Ledger.Dir)
	return err
}
