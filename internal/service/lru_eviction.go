package service

import (
	"container/list"
	"sync"

	"github.com/mkrett/shuttle/internal/catalog"
	"github.com/mkrett/shuttle/internal/client/objectstore/cache"
)

// lruEntry holds metadata for a cached item.
type lruEntry struct {
	key  string
	size int64
}

// LRUEvictionPolicy is an in-memory LRU that bounds the local read cache used
// in front of a remote object store. Object sizes come from the asset catalog.
type LRUEvictionPolicy struct {
	mu sync.Mutex

	maxSizeBytes int64
	currentSize  int64

	// items maps cache keys to their position in the LRU list.
	items map[string]*list.Element
	// order keeps items ordered by recency (front = most recently used).
	order *list.List

	catalog *catalog.Catalog
}

// NewLRUEvictionPolicy creates an LRU eviction policy that looks up object
// sizes in the catalog. maxSizeBytes is the soft limit for total cached size.
func NewLRUEvictionPolicy(cat *catalog.Catalog, maxSizeBytes int64) cache.EvictionPolicy {
	return &LRUEvictionPolicy{
		maxSizeBytes: maxSizeBytes,
		items:        make(map[string]*list.Element),
		order:        list.New(),
		catalog:      cat,
	}
}

// OnAccess is called when a cache key is accessed (read).
func (p *LRUEvictionPolicy) OnAccess(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if elem, ok := p.items[key]; ok {
		p.order.MoveToFront(elem)
	}
}

// OnAdd is called when a new item lands in the cache. It returns the keys that
// should be evicted to stay under the size limit.
func (p *LRUEvictionPolicy) OnAdd(key string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	// If the key already exists, treat as access.
	if elem, ok := p.items[key]; ok {
		p.order.MoveToFront(elem)
		return nil
	}

	entry := &lruEntry{
		key:  key,
		size: p.lookupSizeBytes(key),
	}
	elem := p.order.PushFront(entry)
	p.items[key] = elem
	p.currentSize += entry.size

	return p.evictIfNeeded()
}

// OnRemove is called when an item is removed from the cache.
func (p *LRUEvictionPolicy) OnRemove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	elem, ok := p.items[key]
	if !ok {
		return
	}

	if entry, _ := elem.Value.(*lruEntry); entry != nil {
		p.currentSize -= entry.size
	}

	p.order.Remove(elem)
	delete(p.items, key)
}

// evictIfNeeded trims the LRU list so total size stays within maxSizeBytes and
// returns the keys to evict from the underlying cache storage.
func (p *LRUEvictionPolicy) evictIfNeeded() []string {
	if p.maxSizeBytes <= 0 {
		return nil
	}

	var evicted []string

	for p.currentSize > p.maxSizeBytes && p.order.Len() > 0 {
		back := p.order.Back()
		if back == nil {
			break
		}

		entry, _ := back.Value.(*lruEntry)
		if entry == nil {
			p.order.Remove(back)
			continue
		}

		delete(p.items, entry.key)
		p.order.Remove(back)
		p.currentSize -= entry.size
		evicted = append(evicted, entry.key)
	}

	return evicted
}

// lookupSizeBytes finds the catalogued asset stored under key. Unknown keys
// count as 0 and never push anything out of the cache.
func (p *LRUEvictionPolicy) lookupSizeBytes(key string) int64 {
	if p.catalog == nil {
		return 0
	}

	for _, rec := range p.catalog.List() {
		if rec.StorageKey == key {
			return rec.Size
		}
	}
	return 0
}
