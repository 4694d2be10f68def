// Package catalog persists the asset catalog as a single JSON document that is
// rewritten in full on every mutation. That makes each Put/Remove O(catalog
// size) to persist, which is fine at the catalog's scale; implementers who
// outgrow it want an append log instead of a bigger document.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/mkrett/shuttle/internal/model"
)

type document struct {
	Assets map[string]model.AssetRecord `json:"assets"`
}

// Catalog is the durable id → AssetRecord mapping. The whole document lives in
// memory; mutations are serialized behind one mutex because each one rewrites
// the full document on disk.
type Catalog struct {
	mu         sync.RWMutex
	path       string
	pendingDir string
	assets     map[string]model.AssetRecord
}

// Open loads the catalog document, creating an empty one if none exists yet.
// The pending-finalization journal lives next to the document.
func Open(path string) (*Catalog, error) {
	if path == "" {
		return nil, fmt.Errorf("catalog path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}

	pendingDir := path + ".pending"
	if err := os.MkdirAll(pendingDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pending dir: %w", err)
	}

	c := &Catalog{
		path:       path,
		pendingDir: pendingDir,
		assets:     make(map[string]model.AssetRecord),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var doc document
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if doc.Assets != nil {
		c.assets = doc.Assets
	}

	return c, nil
}

// Get returns the record for id.
func (c *Catalog) Get(id string) (model.AssetRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.assets[id]
	return rec, ok
}

// List returns every record. Order is not specified.
func (c *Catalog) List() []model.AssetRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records := make([]model.AssetRecord, 0, len(c.assets))
	for _, rec := range c.assets {
		records = append(records, rec)
	}
	return records
}

// Len returns the number of catalogued assets.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.assets)
}

// Put registers a record and persists the full document before returning. On a
// persist failure the in-memory state is rolled back.
func (c *Catalog) Put(rec model.AssetRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, existed := c.assets[rec.ID]
	c.assets[rec.ID] = rec

	if err := c.persistLocked(); err != nil {
		if existed {
			c.assets[rec.ID] = prev
		} else {
			delete(c.assets, rec.ID)
		}
		return fmt.Errorf("persist catalog: %w", err)
	}
	return nil
}

// Remove drops a record and persists the full document before returning.
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, existed := c.assets[id]
	if !existed {
		return nil
	}
	delete(c.assets, id)

	if err := c.persistLocked(); err != nil {
		c.assets[id] = prev
		return fmt.Errorf("persist catalog: %w", err)
	}
	return nil
}

// persistLocked rewrites the whole document atomically (temp file + rename).
func (c *Catalog) persistLocked() error {
	data, err := sonic.Marshal(document{Assets: c.assets})
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename catalog: %w", err)
	}
	return nil
}

// PutPending journals a record before its blob is promoted. A leftover entry
// at boot means the process died between promotion and the catalog persist;
// reconciliation resolves it.
func (c *Catalog) PutPending(rec model.AssetRecord) error {
	data, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode pending record: %w", err)
	}
	if err := os.WriteFile(c.pendingPath(rec.ID), data, 0o644); err != nil {
		return fmt.Errorf("write pending record: %w", err)
	}
	return nil
}

// ClearPending removes the journal entry for id.
func (c *Catalog) ClearPending(id string) error {
	if err := os.Remove(c.pendingPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pending record: %w", err)
	}
	return nil
}

// Pending returns every journaled record, oldest state first is not needed so
// directory order is fine.
func (c *Catalog) Pending() ([]model.AssetRecord, error) {
	dirents, err := os.ReadDir(c.pendingDir)
	if err != nil {
		return nil, fmt.Errorf("read pending dir: %w", err)
	}

	records := make([]model.AssetRecord, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.pendingDir, d.Name()))
		if err != nil {
			return nil, fmt.Errorf("read pending record %s: %w", d.Name(), err)
		}
		var rec model.AssetRecord
		if err := sonic.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode pending record %s: %w", d.Name(), err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func (c *Catalog) pendingPath(id string) string {
	return filepath.Join(c.pendingDir, filepath.Base(id)+".json")
}
