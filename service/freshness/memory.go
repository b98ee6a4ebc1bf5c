package freshness

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pandodao/sac-wallet/core"
)

type entry struct {
	snapshot  *core.Snapshot
	expiresAt time.Time
}

// NewMemory keeps snapshots in process. maxTTL bounds how long any entry survives.
func NewMemory(size int, maxTTL time.Duration) core.FreshnessCache {
	return &memory{
		entries: expirable.NewLRU[int64, entry](size, nil, maxTTL),
	}
}

type memory struct {
	entries *expirable.LRU[int64, entry]
}

func (m *memory) Get(_ context.Context, userID int64) (*core.Snapshot, bool) {
	e, ok := m.entries.Get(userID)
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}

	return e.snapshot, true
}

func (m *memory) Set(_ context.Context, snapshot *core.Snapshot, ttl time.Duration) error {
	m.entries.Add(snapshot.UserID, entry{
		snapshot:  snapshot,
		expiresAt: time.Now().Add(ttl),
	})

	return nil
}
