package activities

import (
	"context"
	"errors"
	"sync"
	"time"

	"agenda-activites-report-ui/internal/report"
)

// ErrNotLoaded is returned while no snapshot has ever been loaded.
var ErrNotLoaded = errors.New("activities snapshot not loaded")

// Snapshot is one successfully loaded record set. Records are read-only
// after load; every derivation works on copies or derived views.
type Snapshot struct {
	Records  []report.Activity
	LoadedAt time.Time
	Source   string
}

// Cache holds the current in-memory snapshot and the outcome of the last
// load attempt. A failed refresh keeps the previous snapshot; only a
// service that never managed to load renders the error state.
type Cache struct {
	source Source

	mu          sync.RWMutex
	snap        *Snapshot
	lastErr     error
	lastAttempt time.Time
}

func NewCache(source Source) *Cache {
	return &Cache{source: source}
}

// Refresh fetches a fresh record set from the source.
func (c *Cache) Refresh(ctx context.Context) error {
	records, err := c.source.Fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAttempt = time.Now().UTC()
	if err != nil {
		c.lastErr = err
		return err
	}
	c.lastErr = nil
	c.snap = &Snapshot{
		Records:  records,
		LoadedAt: c.lastAttempt,
		Source:   c.source.Name(),
	}
	return nil
}

// Snapshot returns the current record set, or the load error when none has
// ever been loaded.
func (c *Cache) Snapshot() (*Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		if c.lastErr != nil {
			return nil, c.lastErr
		}
		return nil, ErrNotLoaded
	}
	return c.snap, nil
}

// Status describes the cache for the status endpoint.
type Status struct {
	Source      string     `json:"source"`
	Loaded      bool       `json:"loaded"`
	Records     int        `json:"records"`
	LoadedAt    *time.Time `json:"loaded_at,omitempty"`
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Status{Source: c.source.Name()}
	if !c.lastAttempt.IsZero() {
		t := c.lastAttempt
		st.LastAttempt = &t
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	if c.snap != nil {
		st.Loaded = true
		st.Records = len(c.snap.Records)
		t := c.snap.LoadedAt
		st.LoadedAt = &t
	}
	return st
}

// Poll refreshes the snapshot on an interval until ctx is cancelled.
func (c *Cache) Poll(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}
