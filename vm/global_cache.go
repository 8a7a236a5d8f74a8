package vm

import "unsafe"

// ---------------------------------------------------------------------------
// GlobalCache: the process-wide method lookup cache
// ---------------------------------------------------------------------------

const (
	cacheSize = 0x1000
	cacheMask = 0xfff
)

// CacheEntry is one slot of the global cache: the (class, selector) key
// plus the resolution result. Method is always stored unwrapped; Vis
// carries the wrapper's tag, public for bare executables.
type CacheEntry struct {
	Class  *Module
	Name   Symbol
	Module *Module // defining module
	Method Executable
	Vis    Visibility
}

// Public reports whether the cached method was stored without a
// restricting visibility wrapper.
func (e *CacheEntry) Public() bool { return e.Vis == VisPublic }

// GlobalCache is a fixed-size direct-mapped cache over (class,
// selector). There is no probing and no chaining: a miss on a hot slot
// simply overwrites it on the next retain. The cache is an
// acceleration, never authoritative; the resolver is the source of
// truth, and a torn read is resolved by the key recheck in Lookup.
type GlobalCache struct {
	entries [cacheSize]CacheEntry
}

// NewGlobalCache returns a zeroed cache.
func NewGlobalCache() *GlobalCache {
	return &GlobalCache{}
}

func cacheHash(cls *Module, name Symbol) int {
	return int(((uintptr(unsafe.Pointer(cls)) >> 3) ^ uintptr(name)) & cacheMask)
}

// Lookup returns the entry for (cls, name) iff both halves of the key
// match; otherwise nil.
func (c *GlobalCache) Lookup(cls *Module, name Symbol) *CacheEntry {
	entry := &c.entries[cacheHash(cls, name)]
	if entry.Name == name && entry.Class == cls {
		return entry
	}
	return nil
}

// Retain writes the slot for (cls, name) unconditionally. A visibility
// wrapper is unwrapped here: the stored method is the executable and
// Vis reflects the wrapper.
func (c *GlobalCache) Retain(cls *Module, name Symbol, defining *Module, method Executable) {
	entry := &c.entries[cacheHash(cls, name)]
	entry.Class = cls
	entry.Name = name
	entry.Module = defining
	entry.Method, entry.Vis = Unwrap(method)
}

// Clear zeroes every slot. The running core never clears; only tests
// call it.
func (c *GlobalCache) Clear() {
	c.entries = [cacheSize]CacheEntry{}
}
