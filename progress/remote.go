package progress

import (
	"context"
	"errors"

	"morakib/core"
	"morakib/storage"
)

// RemoteStore persists progress in the platform database, the source of
// truth for authenticated users.
type RemoteStore struct {
	db *storage.SQLiteProgressStorage
}

// NewRemoteStore creates a database-backed progress store
func NewRemoteStore(db *storage.SQLiteProgressStorage) *RemoteStore {
	return &RemoteStore{db: db}
}

func (rs *RemoteStore) Load(ctx context.Context, key Key) (*core.SOPProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := rs.db.GetProgress(key.UserID, key.SOPSlug)
	if errors.Is(err, storage.ErrProgressNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

func (rs *RemoteStore) Save(ctx context.Context, key Key, p *core.SOPProgress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.UserID = key.UserID
	p.SOPSlug = key.SOPSlug
	return rs.db.SaveProgress(p)
}

func (rs *RemoteStore) Clear(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := rs.db.DeleteProgress(key.UserID, key.SOPSlug)
	if errors.Is(err, storage.ErrProgressNotFound) {
		return nil
	}
	return err
}
