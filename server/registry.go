package server

import "log"
import "sync"

import "github.com/google/btree"

// connItem is the btree.Item stored for each live connection, ordered by
// remote address so shutdown logging comes out in a reproducible order
// instead of goroutine-scheduling order.
type connItem struct {
	addr string
	id   string
}

func (c connItem) Less(than btree.Item) bool {
	return c.addr < than.(connItem).addr
}

// registry tracks live connections for shutdown diagnostics and for the
// dashboard's active-connection count; no request is served through it.
type registry struct {
	mu sync.Mutex
	t  *btree.BTree
}

func newRegistry() *registry {
	return &registry{t: btree.New(32)}
}

func (r *registry) add(addr, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t.ReplaceOrInsert(connItem{addr: addr, id: id})
}

func (r *registry) remove(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t.Delete(connItem{addr: addr})
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.Len()
}

// logDraining prints every still-open connection in address order, called
// once at the start of shutdown.
func (r *registry) logDraining() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.t.Len() == 0 {
		log.Printf("server: shutdown, no connections draining")
		return
	}
	log.Printf("server: shutdown, %d connections draining:", r.t.Len())
	r.t.Ascend(func(i btree.Item) bool {
		item := i.(connItem)
		log.Printf("server:   %s (conn %s)", item.addr, item.id)
		return true
	})
}
