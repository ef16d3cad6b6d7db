package progress

import (
	"context"
	"errors"

	"morakib/core"

	"go.uber.org/zap"
)

// CompositeStore combines the local cache with the remote source of truth.
// Saves always land locally first; the remote write is best-effort so an
// unreachable server never loses checklist state. Loads prefer the remote
// copy and fall back to the cache. Concurrent saves for the same key are
// last-write-wins.
type CompositeStore struct {
	local  Store
	remote Store
	logger *zap.SugaredLogger
}

// NewCompositeStore creates a store layering local over remote
func NewCompositeStore(local, remote Store, logger *zap.SugaredLogger) *CompositeStore {
	return &CompositeStore{local: local, remote: remote, logger: logger}
}

func (cs *CompositeStore) Load(ctx context.Context, key Key) (*core.SOPProgress, error) {
	p, err := cs.remote.Load(ctx, key)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		cs.logger.Warnf("Remote progress load failed for %s/%s, falling back to cache: %v",
			key.UserID, key.SOPSlug, err)
	}
	return cs.local.Load(ctx, key)
}

func (cs *CompositeStore) Save(ctx context.Context, key Key, p *core.SOPProgress) error {
	if err := cs.local.Save(ctx, key, p); err != nil {
		return err
	}
	if err := cs.remote.Save(ctx, key, p); err != nil {
		cs.logger.Warnf("Remote progress save failed for %s/%s, cached copy retained: %v",
			key.UserID, key.SOPSlug, err)
	}
	return nil
}

func (cs *CompositeStore) Clear(ctx context.Context, key Key) error {
	localErr := cs.local.Clear(ctx, key)
	remoteErr := cs.remote.Clear(ctx, key)
	if localErr != nil {
		return localErr
	}
	return remoteErr
}
