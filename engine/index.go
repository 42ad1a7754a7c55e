package engine

import "github.com/launix-de/NonLockingReadMap"

// indexEntry is the in-memory counterpart of the on-disk record location:
// the byte offset and length of the most recent live (non-tombstone) record
// for a key.
type indexEntry struct {
	key    string
	offset int64
	length int64
}

// GetKey and ComputeSize satisfy NonLockingReadMap.KeyGetter, letting the
// index live in a lock-free, read-optimized ordered map instead of behind a
// mutex: readers (Get) take an atomic pointer load with no blocking, and
// writers (Set/Delete/Compact) install a new sorted snapshot via
// compare-and-swap. The map's key-sorted internal order is also what gives
// Compact its deterministic iteration order for free.
func (e *indexEntry) GetKey() string { return e.key }

func (e *indexEntry) ComputeSize() uint {
	return uint(len(e.key)) + 16
}

// index wraps NonLockingReadMap.NonLockingReadMap[indexEntry, string] with
// the small vocabulary the engine actually needs.
type index struct {
	m NonLockingReadMap.NonLockingReadMap[indexEntry, string]
}

func newIndex() *index {
	idx := &index{m: NonLockingReadMap.New[indexEntry, string]()}
	return idx
}

func (i *index) lookup(key string) (indexEntry, bool) {
	e := i.m.Get(key)
	if e == nil {
		return indexEntry{}, false
	}
	return *e, true
}

func (i *index) set(key string, offset, length int64) {
	i.m.Set(&indexEntry{key: key, offset: offset, length: length})
}

// remove deletes key from the index and reports whether it was present.
func (i *index) remove(key string) bool {
	return i.m.Remove(key) != nil
}

// snapshot returns every live entry in ascending key order, the order
// Compact rewrites the data file in.
func (i *index) snapshot() []indexEntry {
	all := i.m.GetAll()
	out := make([]indexEntry, len(all))
	for n, e := range all {
		out[n] = *e
	}
	return out
}

func (i *index) len() int {
	return len(i.m.GetAll())
}
