package server

import "context"
import "log"
import "time"

// runCompactor drives §4.5's compactor task: a periodic ticker invoking
// Compact on the shared engine, cancelled via ctx at shutdown. It returns as
// soon as it sees ctx cancelled between ticks; a compaction already running
// is finished first, never interrupted.
func (s *Server) runCompactor(ctx context.Context) {
	ticker := time.NewTicker(s.compactInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := s.engine.Compact(); err != nil {
				log.Printf("server: compaction failed: %v", err)
				continue
			}
			if s.dashboard != nil {
				s.dashboard.recordCompaction(time.Since(start))
			}
			if s.archiver != nil {
				if err := s.archiver.UploadSnapshot(ctx, s.dataPath, start); err != nil {
					log.Printf("server: archive upload failed: %v", err)
				}
			}
		}
	}
}
