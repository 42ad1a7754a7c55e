package engine

import "io"
import "log"
import "os"

import "github.com/pierrec/lz4/v4"

// backupBeforeCompact mirrors the teacher's "rescue a copy in case of
// failure while save" pattern from persistence-files.go (there: renaming
// schema.json to schema.json.old before an overwrite). Here the live data
// file is about to be truncated, so the rescue copy is an LZ4-compressed
// snapshot rather than a rename, since the original must keep being read
// from until compaction actually starts rewriting it.
//
// Backup failures are logged and never fail compaction: the backup is a
// convenience recovery point, not part of compaction's correctness.
func backupBeforeCompact(path string) {
	backupPath := path + ".bak.lz4"

	src, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("engine: backup skipped, could not open %s: %v", path, err)
		}
		return
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		log.Printf("engine: backup skipped, could not create %s: %v", backupPath, err)
		return
	}
	defer dst.Close()

	zw := lz4.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		log.Printf("engine: backup of %s failed mid-copy: %v", path, err)
		return
	}
	if err := zw.Close(); err != nil {
		log.Printf("engine: backup of %s failed to finalize: %v", path, err)
	}
}
