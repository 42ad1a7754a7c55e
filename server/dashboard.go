package server

import "context"
import "encoding/json"
import "log"
import "net/http"
import "sync"
import "time"

import "github.com/gorilla/websocket"

// Stats is the JSON snapshot pushed to every connected dashboard client
// after each successful compaction.
type Stats struct {
	ActiveConnections  int   `json:"active_connections"`
	CompactionsRun     int   `json:"compactions_run"`
	LastCompactionMS   int64 `json:"last_compaction_ms"`
}

// dashboard serves a /stats websocket endpoint that pushes Stats after every
// successful compaction (a failed run pushes nothing). It is bound to its own address, disabled unless
// configured, and never sits on the data path: a slow or absent dashboard
// client cannot stall a SET or GET.
type dashboard struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	stats   Stats
}

func newDashboard() *dashboard {
	return &dashboard{
		clients: make(map[*websocket.Conn]struct{}),
	}
}

func (d *dashboard) serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", d.handleWS)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Printf("server: dashboard listening on %s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (d *dashboard) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: dashboard upgrade failed: %v", err)
		return
	}
	d.mu.Lock()
	d.clients[conn] = struct{}{}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.clients, conn)
		d.mu.Unlock()
		conn.Close()
	}()

	// The dashboard is push-only; draining incoming frames just lets us
	// notice the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (d *dashboard) setActive(n int) {
	d.mu.Lock()
	d.stats.ActiveConnections = n
	d.mu.Unlock()
}

// setActiveSafe is a nil-receiver-tolerant wrapper so callers on the hot
// connection path don't need to branch on whether a dashboard was
// configured.
func (d *dashboard) setActiveSafe(n int) {
	if d == nil {
		return
	}
	d.setActive(n)
}

func (d *dashboard) recordCompaction(dur time.Duration) {
	d.mu.Lock()
	d.stats.CompactionsRun++
	d.stats.LastCompactionMS = dur.Milliseconds()
	snapshot := d.stats
	clients := make([]*websocket.Conn, 0, len(d.clients))
	for c := range d.clients {
		clients = append(clients, c)
	}
	d.mu.Unlock()

	b, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("server: dashboard marshal failed: %v", err)
		return
	}
	for _, c := range clients {
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Printf("server: dashboard push failed: %v", err)
		}
	}
}
