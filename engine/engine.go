// Package engine implements the log-structured storage core: an append-only
// JSON-lines data file paired with a memory-resident index, crash-recoverable
// hydration, tombstone deletion, and whole-file compaction.
package engine

import "bufio"
import "fmt"
import "io"
import "log"
import "os"
import "sync"
import "time"

import "github.com/google/uuid"

// Options configures optional, non-semantic-altering behavior around the
// engine's core operations.
type Options struct {
	// Backup, when true, snapshots the data file (LZ4-compressed) to
	// <path>.bak.lz4 immediately before each compaction truncates it.
	Backup bool
	// Watch, when true, starts a best-effort fsnotify watch on the data
	// file's directory purely for diagnostic logging.
	Watch bool
}

// Engine is the log-structured key-value store described by §4.4: an
// append-only data file plus an in-memory index. It satisfies
// command.Store.
type Engine struct {
	path string
	id   uuid.UUID

	idx *index

	appendMu   sync.Mutex
	appendFile *os.File
	size       int64

	opts    Options
	watcher *watcher
}

// Open opens (creating if necessary) the data file at path and hydrates the
// index by replaying it from the beginning, per §4.4's open algorithm.
// Hydration errors are fatal, matching "parse errors on any line are fatal
// to open".
func Open(path string, opts Options) (*Engine, error) {
	idx, size, err := hydrate(path)
	if err != nil {
		return nil, fmt.Errorf("engine: hydrate %s: %w", path, err)
	}

	appendFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("engine: open %s for append: %w", path, err)
	}

	e := &Engine{
		path:       path,
		id:         uuid.New(),
		idx:        idx,
		appendFile: appendFile,
		size:       size,
		opts:       opts,
	}

	if opts.Watch {
		e.watcher = watchDataFile(path)
	}

	return e, nil
}

// hydrate implements §4.4 step 1-3: stream the file line by line, tracking
// offset, and fold tombstones/inserts into a fresh index in log order so the
// result is exactly "replay the log, keep the latest per key".
func hydrate(path string) (*index, int64, error) {
	idx := newIndex()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	var offset int64

	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			rec, decErr := decodeRecord(line)
			if decErr != nil {
				return nil, 0, fmt.Errorf("corrupt record at offset %d: %w", offset, decErr)
			}
			length := int64(len(line))
			if rec.IsTombstone {
				idx.remove(rec.Key)
			} else {
				idx.set(rec.Key, offset, length)
			}
			offset += length
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, 0, err
		}
	}

	return idx, offset, nil
}

// Close releases the append file handle and any background watcher. It does
// not flush anything buffered beyond the OS (every write is already an
// unbuffered append).
func (e *Engine) Close() error {
	e.watcher.close()
	return e.appendFile.Close()
}

// Get implements §4.4 get: index lookup, fresh read handle, bounds-checked
// read, tombstone re-check (to cover the documented compactor race).
func (e *Engine) Get(key string) ([]byte, bool, error) {
	entry, ok := e.idx.lookup(key)
	if !ok {
		return nil, false, nil
	}

	buf, err := e.readAt(entry.offset, entry.length)
	if err != nil {
		return nil, false, fmt.Errorf("engine: read %s at %d+%d: %w", key, entry.offset, entry.length, err)
	}

	rec, err := decodeRecord(buf)
	if err != nil {
		return nil, false, fmt.Errorf("engine: decode %s at %d: %w", key, entry.offset, err)
	}

	if rec.IsTombstone {
		// Raced with a compactor or a delete that landed between our index
		// lookup and this read; treat exactly like a miss.
		return nil, false, nil
	}
	if rec.Key != key {
		return nil, false, fmt.Errorf("engine: index/data mismatch for %s at offset %d (found %s)", key, entry.offset, rec.Key)
	}
	if rec.Value == nil {
		return []byte{}, true, nil
	}
	return []byte(*rec.Value), true, nil
}

func (e *Engine) readAt(offset, length int64) ([]byte, error) {
	f, err := os.Open(e.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}

// Set implements §4.4 set: validate, serialize, append, then update the
// index — in that order, so the index never points at a byte range that has
// not been written yet (written to the OS, not fsynced).
func (e *Engine) Set(key string, value []byte) error {
	rec := Record{
		Key:         key,
		Value:       normalizeValue(value),
		Timestamp:   uint64(time.Now().Unix()),
		IsTombstone: false,
	}

	offset, length, err := e.append(rec)
	if err != nil {
		return fmt.Errorf("engine: set %s: %w", key, err)
	}

	e.idx.set(key, offset, length)
	return nil
}

// Delete implements §4.4 delete: remove the index entry (so racing readers
// observe a miss immediately), then append a tombstone whose own position is
// never indexed.
func (e *Engine) Delete(key string) (bool, error) {
	if !e.idx.remove(key) {
		return false, nil
	}

	tombstone := Record{
		Key:         key,
		Value:       nil,
		Timestamp:   uint64(time.Now().Unix()),
		IsTombstone: true,
	}
	if _, _, err := e.append(tombstone); err != nil {
		return false, fmt.Errorf("engine: delete %s: %w", key, err)
	}
	return true, nil
}

// append serializes rec and writes it to the end of the data file, returning
// where it landed. Callers decide what, if anything, to do with the index.
func (e *Engine) append(rec Record) (offset int64, length int64, err error) {
	serialized, err := rec.serialize()
	if err != nil {
		return 0, 0, err
	}

	e.appendMu.Lock()
	defer e.appendMu.Unlock()

	n, err := e.appendFile.Write(serialized)
	if err != nil {
		return 0, 0, err
	}

	offset = e.size
	e.size += int64(n)
	return offset, int64(n), nil
}

// Compact implements §4.4 compact: snapshot the live index, read every live
// record, truncate the file, and re-append each record, updating the index
// as each one lands. It holds appendMu for the whole rewrite so it is
// serialized against concurrent Set/Delete, per the §9 recommendation.
func (e *Engine) Compact() error {
	// The index snapshot is taken under appendMu and the lock held through
	// the whole rewrite, so no concurrent Set/Delete can land a record
	// between the snapshot and the truncate — such a record would otherwise
	// be silently dropped by the rewrite below.
	e.appendMu.Lock()
	defer e.appendMu.Unlock()

	entries := e.idx.snapshot()

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		buf, err := e.readAt(entry.offset, entry.length)
		if err != nil {
			return fmt.Errorf("engine: compact: read %s at %d: %w", entry.key, entry.offset, err)
		}
		rec, err := decodeRecord(buf)
		if err != nil {
			return fmt.Errorf("engine: compact: decode %s at %d: %w", entry.key, entry.offset, err)
		}
		records = append(records, rec)
	}

	if e.opts.Backup {
		backupBeforeCompact(e.path)
	}

	if err := e.appendFile.Truncate(0); err != nil {
		return fmt.Errorf("engine: compact: truncate %s: %w", e.path, err)
	}
	e.size = 0

	for _, rec := range records {
		serialized, err := rec.serialize()
		if err != nil {
			return fmt.Errorf("engine: compact: serialize %s: %w", rec.Key, err)
		}
		n, err := e.appendFile.Write(serialized)
		if err != nil {
			return fmt.Errorf("engine: compact: re-append %s: %w", rec.Key, err)
		}
		offset := e.size
		e.size += int64(n)
		e.idx.set(rec.Key, offset, int64(n))
	}

	log.Printf("engine[%s]: compaction complete, %d live records, %d bytes", e.id, len(records), e.size)
	return nil
}
