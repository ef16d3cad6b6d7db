package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"morakib/core"

	"go.uber.org/zap"
)

// LocalStore keeps one JSON file per user/procedure pair in a cache
// directory. It mirrors the browser-side cache of the original workflow:
// progress survives network loss and is reconciled with the server copy on
// the next save. Corrupt files are logged and treated as absent.
type LocalStore struct {
	dir    string
	logger *zap.SugaredLogger
}

// NewLocalStore creates a file-backed progress store rooted at dir
func NewLocalStore(dir string, logger *zap.SugaredLogger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create progress cache directory: %w", err)
	}
	return &LocalStore{dir: dir, logger: logger}, nil
}

// path builds a filesystem-safe file name for a key. Slugs are already safe;
// user IDs are sanitized in case they carry separators.
func (ls *LocalStore) path(key Key) string {
	sanitize := func(s string) string {
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
				return r
			default:
				return '_'
			}
		}, s)
	}
	name := sanitize(key.UserID) + "__" + sanitize(key.SOPSlug) + ".json"
	return filepath.Join(ls.dir, name)
}

func (ls *LocalStore) Load(ctx context.Context, key Key) (*core.SOPProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(ls.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress cache: %w", err)
	}

	var p core.SOPProgress
	if err := json.Unmarshal(data, &p); err != nil {
		ls.logger.Warnf("Corrupt progress cache entry for %s/%s, treating as absent: %v",
			key.UserID, key.SOPSlug, err)
		return nil, ErrNotFound
	}
	if p.ChecklistState == nil {
		p.ChecklistState = core.ChecklistState{}
	}
	return &p, nil
}

func (ls *LocalStore) Save(ctx context.Context, key Key, p *core.SOPProgress) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.UserID = key.UserID
	p.SOPSlug = key.SOPSlug
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	// Write via a temp file so a crash never leaves a half-written entry.
	path := ls.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write progress cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit progress cache: %w", err)
	}
	return nil
}

func (ls *LocalStore) Clear(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(ls.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
