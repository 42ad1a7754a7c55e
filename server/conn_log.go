package server

import "log"

import "github.com/jtolds/gls"

// mgr carries a per-connection id across the goroutine handling it, the same
// role the teacher's storage package uses gls.Go for when it tags worker
// goroutines spawned during a parallel scan (storage/scan.go,
// storage/compute.go) — generalized here from "tag the goroutine" to "tag
// the goroutine and let any logf call on it recover the tag" via
// SetValues/GetValue, so the handler loop's log lines carry the id without
// it being passed to each call. Only logf in this package reads the tag;
// command.Apply itself does not log.
var mgr = gls.NewContextManager()

const connIDKey = "conn"

// withConnID runs fn with connID attached to the current goroutine's
// context, recoverable by logf from anywhere fn calls into.
func withConnID(connID string, fn func()) {
	mgr.SetValues(gls.Values{connIDKey: connID}, fn)
}

// logf prefixes every log line with the calling goroutine's connection id,
// if one was attached via withConnID.
func logf(format string, args ...any) {
	if v, ok := mgr.GetValue(connIDKey); ok {
		log.Printf("server[conn %s]: "+format, append([]any{v}, args...)...)
		return
	}
	log.Printf("server: "+format, args...)
}
