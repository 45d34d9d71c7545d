package aof

import (
	"io"
	"os"
	"strconv"

	"github.com/minidb/goredis/internal/resp"
)

// Apply receives one replayed command, already routed to dbIndex via the
// log's embedded SELECT markers. The caller executes it against its own
// keyspace however it sees fit; Replay itself knows nothing about
// commands or keyspaces.
type Apply func(dbIndex int, args [][]byte) error

// Replay reads path from the start and calls apply once per command,
// tracking the active database across SELECT lines written by Feed. A
// missing file is not an error.
//
// Per spec §4.8's recovery contract, a truncated final record (the
// process died mid-write) is tolerated silently — replay simply stops —
// while a malformed *interior* record aborts replay with an error, since
// that indicates corruption rather than an in-flight write.
func Replay(path string, apply Apply) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	dbIndex := 0
	pos := 0
	for pos < len(data) {
		v, consumed, err := resp.DecodeValue(data[pos:])
		if err == resp.ErrIncomplete {
			// Trailing partial frame from a crash mid-append; stop here.
			return nil
		}
		if err != nil {
			return err
		}

		args, err := v.CommandArgs()
		if err != nil {
			return err
		}

		if len(args) == 2 && string(args[0]) == "SELECT" {
			n, err := strconv.Atoi(string(args[1]))
			if err != nil {
				return err
			}
			dbIndex = n
		} else if err := apply(dbIndex, args); err != nil {
			return err
		}

		pos += consumed
	}
	return nil
}
