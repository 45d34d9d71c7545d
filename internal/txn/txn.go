// Package txn holds the pure WATCH/EXEC abort-condition check (spec
// §4.6). The per-connection state machine itself lives on session.Session
// (queue, watched-key snapshot, NONE/QUEUING/DISCARDED transitions); this
// package is the one piece of transaction logic that needs the keyspace
// rather than just the connection, kept separate so the command package's
// EXEC handler stays a thin dispatch loop.
package txn

import "github.com/minidb/goredis/internal/keyspace"

// Aborted reports whether any watched key's version has moved since it
// was recorded, per spec §4.6's abort condition: "any watched key's
// current version differs from its recorded version, or its version
// indicates the key was deleted since". Because every delete and every
// write bumps the per-key version (spec §4.3), a single equality check
// against the live version covers both cases without needing to also ask
// whether the key still exists.
func Aborted(ks *keyspace.Keyspace, watched map[string]uint64) bool {
	for key, recorded := range watched {
		if ks.Version(key) != recorded {
			return true
		}
	}
	return false
}
