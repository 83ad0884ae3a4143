package compiler

import (
	"sync"
	"sync/atomic"

	"github.com/wane/wane-sub001/internal/template"
)

// ParseCache keeps parsed templates by component name with LRU eviction.
// An entry only hits while the component's source hash is unchanged, so a
// long-running watch loop reparses just the components that were edited.
// Cached nodes are shared read-only; factory.Build clones them per
// instance.
type ParseCache struct {
	entries    map[string]*cacheEntry
	mutex      sync.Mutex
	maxEntries int
	// LRU implementation
	head *cacheEntry
	tail *cacheEntry
	// Statistics tracking (atomic for thread safety)
	hits      int64
	misses    int64
	evictions int64
}

type cacheEntry struct {
	name  string
	hash  string
	nodes []*template.Node
	// LRU doubly-linked list pointers
	prev *cacheEntry
	next *cacheEntry
}

// NewParseCache creates a cache holding at most maxEntries templates.
func NewParseCache(maxEntries int) *ParseCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	cache := &ParseCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
	}

	// Initialize LRU doubly-linked list with dummy head and tail
	cache.head = &cacheEntry{}
	cache.tail = &cacheEntry{}
	cache.head.next = cache.tail
	cache.tail.prev = cache.head

	return cache
}

// Get returns the nodes cached for name when they were parsed from a source
// with the given hash.
func (pc *ParseCache) Get(name, hash string) ([]*template.Node, bool) {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()

	entry, exists := pc.entries[name]
	if !exists || hash == "" || entry.hash != hash {
		atomic.AddInt64(&pc.misses, 1)
		return nil, false
	}

	pc.moveToFront(entry)
	atomic.AddInt64(&pc.hits, 1)
	return entry.nodes, true
}

// Set stores the nodes parsed for name from a source with hash. Sources
// without a hash are not cached.
func (pc *ParseCache) Set(name, hash string, nodes []*template.Node) {
	if hash == "" {
		return
	}
	pc.mutex.Lock()
	defer pc.mutex.Unlock()

	if existing, exists := pc.entries[name]; exists {
		existing.hash = hash
		existing.nodes = nodes
		pc.moveToFront(existing)
		return
	}

	for len(pc.entries) >= pc.maxEntries && pc.tail.prev != pc.head {
		lru := pc.tail.prev
		pc.removeFromList(lru)
		delete(pc.entries, lru.name)
		atomic.AddInt64(&pc.evictions, 1)
	}

	entry := &cacheEntry{name: name, hash: hash, nodes: nodes}
	pc.entries[name] = entry
	pc.addToFront(entry)
}

// Remove drops the entry for name.
func (pc *ParseCache) Remove(name string) {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()
	if entry, exists := pc.entries[name]; exists {
		pc.removeFromList(entry)
		delete(pc.entries, name)
	}
}

// Len returns the number of cached templates.
func (pc *ParseCache) Len() int {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()
	return len(pc.entries)
}

// Stats returns hits, misses and evictions since creation.
func (pc *ParseCache) Stats() (hits, misses, evictions int64) {
	return atomic.LoadInt64(&pc.hits), atomic.LoadInt64(&pc.misses), atomic.LoadInt64(&pc.evictions)
}

// LRU doubly-linked list operations
func (pc *ParseCache) addToFront(entry *cacheEntry) {
	entry.prev = pc.head
	entry.next = pc.head.next
	pc.head.next.prev = entry
	pc.head.next = entry
}

func (pc *ParseCache) removeFromList(entry *cacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (pc *ParseCache) moveToFront(entry *cacheEntry) {
	pc.removeFromList(entry)
	pc.addToFront(entry)
}
