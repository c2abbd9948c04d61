package persist

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/and161185/feedlog/internal/errs"
	"github.com/and161185/feedlog/internal/storage"
	"github.com/and161185/feedlog/internal/store"
)

// HydrateResult reports how startup hydration went.
type HydrateResult int

const (
	// Empty means there was no stored blob.
	Empty HydrateResult = iota
	// Loaded means the stored snapshot replaced the initial state.
	Loaded
	// Corrupt means a blob existed but could not be decoded or was rejected.
	Corrupt
	// ReadFailed means the backend could not be read (outage, open breaker,
	// wrong passphrase). The stored blob may still be good and must not be
	// overwritten.
	ReadFailed
)

func (r HydrateResult) String() string {
	switch r {
	case Loaded:
		return "loaded"
	case Corrupt:
		return "corrupt"
	case ReadFailed:
		return "read_failed"
	default:
		return "empty"
	}
}

// Dispatcher is the part of the store hydration needs.
type Dispatcher interface {
	Dispatch(store.Action) error
}

// Hydrate reads the blob under key and dispatches it as a single LoadData.
// A missing, unreadable or undecodable blob leaves the state untouched.
func Hydrate(ctx context.Context, st storage.Storage, key string, d Dispatcher, log *zap.Logger) HydrateResult {
	if log == nil {
		log = zap.NewNop()
	}
	blob, err := st.Get(ctx, key)
	if errors.Is(err, errs.ErrNotFound) {
		log.Debug("no stored snapshot", zap.String("key", key))
		return Empty
	}
	if err != nil {
		log.Warn("read snapshot failed", zap.String("key", key), zap.Error(err))
		return ReadFailed
	}

	s, err := Decode(blob)
	if err != nil {
		log.Warn("stored snapshot is corrupt, starting empty",
			zap.String("key", key), zap.Int("bytes", len(blob)), zap.Error(err))
		return Corrupt
	}
	if err := d.Dispatch(store.LoadData{State: s}); err != nil {
		log.Warn("stored snapshot rejected, starting empty", zap.String("key", key), zap.Error(err))
		return Corrupt
	}
	log.Debug("snapshot loaded",
		zap.Int("children", len(s.Children)),
		zap.Int("entries", len(s.FeedingEntries)),
	)
	return Loaded
}
