package aof

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"

	"github.com/minidb/goredis/internal/keyspace"
	"github.com/minidb/goredis/internal/resp"
)

// Source is the narrow view of the database manager a rewrite needs —
// the same shape snapshot.Source uses, kept as a distinct type so this
// package doesn't import persistence/snapshot just to borrow its
// interface. BGREWRITEAOF runs concurrently with live traffic, so reading
// a database's keys must go through WithKeyspace and run on that
// database's own executor goroutine, not a bare handle.
type Source interface {
	DBCount() int
	WithKeyspace(idx int, fn func(*keyspace.Keyspace))
}

// Rewrite produces a fresh, minimal AOF from the current state of every
// database — one SELECT plus one reconstruction command per key, each
// key's native container shape round-tripped through its own ToCmd — and
// atomically swaps it in for the writer's live file, per spec §4.8:
// "BGREWRITEAOF replaces the log with the minimal set of commands that
// reproduce current state."
//
// The teacher's persist package opens the AOF and references a
// rewriteAOF call that was never implemented (SPEC_FULL.md's
// Supplemented Features); this is that implementation, built on the
// ToCmd adapters keyspace.Value already exposes for exactly this
// purpose.
func Rewrite(w *Writer, src Source) error {
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".aof-rewrite-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	bw := bufio.NewWriter(tmp)
	for i := 0; i < src.DBCount(); i++ {
		var dbErr error
		src.WithKeyspace(i, func(ks *keyspace.Keyspace) {
			if ks.Size() == 0 {
				return
			}
			if _, err := bw.Write(resp.Encode(resp.BulkArray([][]byte{
				[]byte("SELECT"), []byte(itoa(i)),
			}))); err != nil {
				dbErr = err
				return
			}

			ks.ForEach(func(key string, v *keyspace.Value) {
				if dbErr != nil {
					return
				}
				if _, err := bw.Write(resp.Encode(resp.BulkArray(v.ToCmd(key)))); err != nil {
					dbErr = err
					return
				}
				if v.ExpireAt != nil {
					pexpireat := [][]byte{
						[]byte("PEXPIREAT"), []byte(key),
						[]byte(strconv.FormatInt(v.ExpireAt.UnixMilli(), 10)),
					}
					if _, err := bw.Write(resp.Encode(resp.BulkArray(pexpireat))); err != nil {
						dbErr = err
						return
					}
				}
			})
		})
		if dbErr != nil {
			tmp.Close()
			return dbErr
		}
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	w.mu.Lock()
	if err := w.f.Close(); err != nil {
		w.mu.Unlock()
		return err
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		w.mu.Unlock()
		return err
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	info, _ := f.Stat()
	w.f = f
	w.lastDB = -1
	w.size = info.Size()
	w.baseSize = info.Size()
	w.mu.Unlock()

	return nil
}
