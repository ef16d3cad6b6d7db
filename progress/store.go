// Package progress persists per-user SOP checklist state. The platform keeps
// two copies: a server-side record that is the source of truth for
// authenticated users, and a local file cache that survives offline work.
package progress

import (
	"context"
	"errors"

	"morakib/core"
)

// ErrNotFound is returned when no progress exists for a key.
var ErrNotFound = errors.New("progress not found")

// Key identifies one user's progress through one procedure.
type Key struct {
	UserID  string
	SOPSlug string
}

// Store loads and saves SOP progress records.
type Store interface {
	Load(ctx context.Context, key Key) (*core.SOPProgress, error)
	Save(ctx context.Context, key Key, p *core.SOPProgress) error
	Clear(ctx context.Context, key Key) error
}

// LoadOrNew returns the stored progress for key, or a fresh empty record when
// none exists yet.
func LoadOrNew(ctx context.Context, s Store, key Key) (*core.SOPProgress, error) {
	p, err := s.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return core.NewSOPProgress(key.UserID, key.SOPSlug), nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
