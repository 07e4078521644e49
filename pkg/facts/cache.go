package facts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codeready-toolchain/annad/pkg/catalog"
)

// Cache is the learned-fact store. Writes are serialized through a single
// background goroutine draining a work queue, so concurrent sessions can
// never interleave a category replacement; readers always see either the
// pre- or post-update value.
type Cache struct {
	mu    sync.RWMutex
	facts map[string]LearnedFact

	learnedPath string
	signalsPath string

	writeCh chan writeRequest
	closeCh chan struct{}
	wg      sync.WaitGroup
}

type writeRequest struct {
	fact LearnedFact
	done chan struct{}
}

// NewCache constructs a Cache persisting to the given state directory
// (<state_root>/facts/learned.json and .../signals.json) and starts its
// single writer goroutine.
func NewCache(stateDir string) *Cache {
	c := &Cache{
		facts:       make(map[string]LearnedFact),
		learnedPath: filepath.Join(stateDir, "facts", "learned.json"),
		signalsPath: filepath.Join(stateDir, "facts", "signals.json"),
		writeCh:     make(chan writeRequest, 64),
		closeCh:     make(chan struct{}),
	}
	c.wg.Add(1)
	go c.writerLoop()
	return c
}

// Close stops the writer goroutine, flushing any pending writes first.
func (c *Cache) Close() {
	close(c.closeCh)
	c.wg.Wait()
}

func (c *Cache) writerLoop() {
	defer c.wg.Done()
	apply := func(req writeRequest) {
		c.mu.Lock()
		c.facts[req.fact.Category] = req.fact
		snapshot := c.snapshotLocked()
		c.mu.Unlock()
		if err := c.persist(snapshot); err != nil {
			// A store I/O error here is non-fatal: the in-memory value
			// is already authoritative for this process; persistence
			// will be retried on the next write.
			_ = err
		}
		close(req.done)
	}
	for {
		select {
		case req := <-c.writeCh:
			apply(req)
		case <-c.closeCh:
			for {
				select {
				case req := <-c.writeCh:
					apply(req)
				default:
					return
				}
			}
		}
	}
}

func (c *Cache) snapshotLocked() []LearnedFact {
	out := make([]LearnedFact, 0, len(c.facts))
	for _, f := range c.facts {
		out = append(out, f)
	}
	return out
}

// Load reads the persisted fact set and signal record from disk, if
// present. A missing or corrupt file is treated as an empty cache rather
// than a fatal error.
func (c *Cache) Load() error {
	data, err := os.ReadFile(c.learnedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("facts: reading %s: %w", c.learnedPath, err)
	}
	var list []LearnedFact
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("facts: corrupt fact store %s: %w", c.learnedPath, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range list {
		c.facts[f.Category] = f
	}
	return nil
}

func (c *Cache) persist(facts []LearnedFact) error {
	if err := os.MkdirAll(filepath.Dir(c.learnedPath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.learnedPath, data, 0o644)
}

// Upsert replaces (or creates) the current fact for category. Replacement
// always updates LearnedAt, per the fact-uniqueness invariant.
func (c *Cache) Upsert(ctx context.Context, category, value, evidenceExcerpt string, fresh catalog.Freshness) (LearnedFact, error) {
	now := time.Now()
	fact := LearnedFact{
		Category:       category,
		Value:          value,
		Evidence:       evidenceExcerpt,
		LearnedAt:      now,
		FreshnessClass: fresh,
		LastVerifiedAt: now,
		SchemaVersion:  1,
	}
	done := make(chan struct{})
	select {
	case c.writeCh <- writeRequest{fact: fact, done: done}:
	case <-ctx.Done():
		return LearnedFact{}, ctx.Err()
	}
	select {
	case <-done:
	case <-ctx.Done():
		return LearnedFact{}, ctx.Err()
	}
	return fact, nil
}

// Get returns the current fact for category, if any.
func (c *Cache) Get(category string) (LearnedFact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.facts[category]
	return f, ok
}

// All returns a defensive copy of every current fact.
func (c *Cache) All() []LearnedFact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// InvalidateOnHostChange applies the invalidation rule: if cur differs
// from the last-recorded signals, every slow or volatile fact is dropped
// while static facts survive. It returns whether an invalidation occurred.
func (c *Cache) InvalidateOnHostChange(cur HostSignals) (bool, error) {
	prev, err := c.readSignals()
	if err != nil {
		return false, err
	}

	changed := cur.Changed(prev)
	if changed {
		c.mu.Lock()
		for category, f := range c.facts {
			if f.FreshnessClass == catalog.FreshnessSlow || f.FreshnessClass == catalog.FreshnessVolatile {
				delete(c.facts, category)
			}
		}
		snapshot := c.snapshotLocked()
		c.mu.Unlock()
		if err := c.persist(snapshot); err != nil {
			return changed, err
		}
	}

	if err := c.writeSignals(cur); err != nil {
		return changed, err
	}
	return changed, nil
}

func (c *Cache) readSignals() (HostSignals, error) {
	data, err := os.ReadFile(c.signalsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return HostSignals{}, nil
		}
		return HostSignals{}, fmt.Errorf("facts: reading %s: %w", c.signalsPath, err)
	}
	var s HostSignals
	if err := json.Unmarshal(data, &s); err != nil {
		return HostSignals{}, fmt.Errorf("facts: corrupt signals store %s: %w", c.signalsPath, err)
	}
	return s, nil
}

func (c *Cache) writeSignals(s HostSignals) error {
	if err := os.MkdirAll(filepath.Dir(c.signalsPath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.signalsPath, data, 0o644)
}
