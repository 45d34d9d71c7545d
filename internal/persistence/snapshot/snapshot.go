package snapshot

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"hash/crc64"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/minidb/goredis/internal/datastruct/hash"
	"github.com/minidb/goredis/internal/datastruct/list"
	"github.com/minidb/goredis/internal/datastruct/set"
	"github.com/minidb/goredis/internal/datastruct/str"
	"github.com/minidb/goredis/internal/datastruct/zset"
	"github.com/minidb/goredis/internal/keyspace"
)

var crcTable = crc64.MakeTable(crc64.ISO)

// Source is the narrow view of the database manager a snapshot needs: how
// many databases exist, and a way to read each one on its own owning
// executor goroutine. keyspace.Keyspace carries no internal mutex by
// design — SAVE/BGSAVE run concurrently with live traffic, so iterating a
// database's keys must happen via WithKeyspace, not a bare handle, exactly
// like an ordinary command does. dbmanager.Manager satisfies this
// structurally.
type Source interface {
	DBCount() int
	WithKeyspace(idx int, fn func(*keyspace.Keyspace))
}

// crcWriter tees every write into a running CRC-64 accumulator, the same
// shape benitolopez-limite's store.go uses around its own binary writer.
type crcWriter struct {
	w   io.Writer
	sum uint64
}

func newCRCWriter(w io.Writer) *crcWriter { return &crcWriter{w: w} }

func (c *crcWriter) Write(p []byte) (int, error) {
	c.sum = crc64.Update(c.sum, crcTable, p)
	return c.w.Write(p)
}

// Save writes a self-describing whole-database dump to path via a
// temporary file plus atomic rename, per spec §4.7's durability
// requirement.
func Save(path string, src Source) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := writeSnapshot(tmp, src); err != nil {
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
	return os.Rename(tmpPath, path)
}

func writeSnapshot(f *os.File, src Source) error {
	cw := newCRCWriter(f)
	bw := bufio.NewWriter(cw)

	if _, err := bw.WriteString(magic + version); err != nil {
		return err
	}
	if err := writeAux(bw, "redis-ver", "goredis-1.0"); err != nil {
		return err
	}

	for i := 0; i < src.DBCount(); i++ {
		var dbErr error
		src.WithKeyspace(i, func(ks *keyspace.Keyspace) {
			if ks.Size() == 0 {
				return
			}
			dbErr = writeDB(bw, i, ks)
		})
		if dbErr != nil {
			return dbErr
		}
	}

	if _, err := bw.Write([]byte{opEOF}); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	checksum := make([]byte, 8)
	binary.BigEndian.PutUint64(checksum, cw.sum)
	_, err := f.Write(checksum)
	return err
}

func writeAux(w io.Writer, key, value string) error {
	if _, err := w.Write([]byte{opAux}); err != nil {
		return err
	}
	if err := writeBytes(w, []byte(key)); err != nil {
		return err
	}
	return writeBytes(w, []byte(value))
}

func writeDB(w io.Writer, idx int, ks *keyspace.Keyspace) error {
	if _, err := w.Write([]byte{opSelectDB}); err != nil {
		return err
	}
	if err := writeLength(w, uint64(idx)); err != nil {
		return err
	}

	stats := ks.Stats()
	if _, err := w.Write([]byte{opResizeDB}); err != nil {
		return err
	}
	if err := writeLength(w, uint64(stats.Keys)); err != nil {
		return err
	}
	if err := writeLength(w, uint64(stats.Expires)); err != nil {
		return err
	}

	var writeErr error
	ks.ForEach(func(key string, v *keyspace.Value) {
		if writeErr != nil {
			return
		}
		writeErr = writeRecord(w, key, v)
	})
	return writeErr
}

func writeRecord(w io.Writer, key string, v *keyspace.Value) error {
	if v.ExpireAt != nil {
		if _, err := w.Write([]byte{opExpireTimeMs}); err != nil {
			return err
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v.ExpireAt.UnixMilli()))
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}

	if _, err := w.Write([]byte{valueTypeTag(v.Type)}); err != nil {
		return err
	}
	if err := writeBytes(w, []byte(key)); err != nil {
		return err
	}
	return writePayload(w, v)
}

func writePayload(w io.Writer, v *keyspace.Value) error {
	switch v.Type {
	case keyspace.TypeString:
		return writeBytes(w, v.Str.Bytes())

	case keyspace.TypeList:
		items := v.List.RangeInclusive(0, -1)
		if err := writeLength(w, uint64(len(items))); err != nil {
			return err
		}
		for _, it := range items {
			if err := writeBytes(w, it); err != nil {
				return err
			}
		}
		return nil

	case keyspace.TypeSet:
		members := v.Set.Members()
		if err := writeLength(w, uint64(len(members))); err != nil {
			return err
		}
		for _, m := range members {
			if err := writeBytes(w, []byte(m)); err != nil {
				return err
			}
		}
		return nil

	case keyspace.TypeHash:
		all := v.Hash.GetAll()
		if err := writeLength(w, uint64(len(all))); err != nil {
			return err
		}
		for field, value := range all {
			if err := writeBytes(w, []byte(field)); err != nil {
				return err
			}
			if err := writeBytes(w, value); err != nil {
				return err
			}
		}
		return nil

	case keyspace.TypeZSet:
		var count int
		v.ZSet.ForEach(func(string, float64) { count++ })
		if err := writeLength(w, uint64(count)); err != nil {
			return err
		}
		var writeErr error
		v.ZSet.ForEach(func(member string, score float64) {
			if writeErr != nil {
				return
			}
			if writeErr = writeBytes(w, []byte(member)); writeErr != nil {
				return
			}
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, math.Float64bits(score))
			_, writeErr = w.Write(buf)
		})
		return writeErr
	}
	return nil
}

// Install receives one decoded key record during Load, destined for
// database dbIndex.
type Install func(dbIndex int, key string, v *keyspace.Value)

// Load reads and verifies a snapshot file, invoking install for every
// decoded key. A missing file returns the os.Open error unchanged, so
// callers can test it with os.IsNotExist.
func Load(path string, install Install) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	if len(data) < 8 {
		return ErrCorrupt
	}
	body, trailer := data[:len(data)-8], data[len(data)-8:]

	want := binary.BigEndian.Uint64(trailer)
	got := crc64.Checksum(body, crcTable)
	if want != got {
		return ErrChecksum
	}

	br := bufio.NewReader(bytes.NewReader(body))
	header := make([]byte, len(magic)+len(version))
	if _, err := io.ReadFull(br, header); err != nil {
		return err
	}
	if string(header[:len(magic)]) != magic {
		return ErrBadMagic
	}

	currentDB := 0
	var pendingExpire *time.Time

	for {
		op, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch op {
		case opEOF:
			return nil

		case opAux:
			if _, err := readBytes(br); err != nil {
				return err
			}
			if _, err := readBytes(br); err != nil {
				return err
			}

		case opSelectDB:
			n, err := readLength(br)
			if err != nil {
				return err
			}
			currentDB = int(n)

		case opResizeDB:
			if _, err := readLength(br); err != nil {
				return err
			}
			if _, err := readLength(br); err != nil {
				return err
			}

		case opExpireTimeMs:
			buf := make([]byte, 8)
			if _, err := io.ReadFull(br, buf); err != nil {
				return err
			}
			t := time.UnixMilli(int64(binary.BigEndian.Uint64(buf)))
			pendingExpire = &t

		default:
			valType, ok := tagToValueType(op)
			if !ok {
				return ErrCorrupt
			}
			key, err := readBytes(br)
			if err != nil {
				return err
			}
			v, err := readPayload(br, valType)
			if err != nil {
				return err
			}
			v.ExpireAt = pendingExpire
			pendingExpire = nil
			install(currentDB, string(key), v)
		}
	}
	return nil
}

func readPayload(br *bufio.Reader, t keyspace.ValueType) (*keyspace.Value, error) {
	switch t {
	case keyspace.TypeString:
		b, err := readBytes(br)
		if err != nil {
			return nil, err
		}
		return keyspace.NewStringValue(str.New(b)), nil

	case keyspace.TypeList:
		n, err := readLength(br)
		if err != nil {
			return nil, err
		}
		l := list.New()
		for i := uint64(0); i < n; i++ {
			item, err := readBytes(br)
			if err != nil {
				return nil, err
			}
			l.PushBack(item)
		}
		return keyspace.NewListValue(l), nil

	case keyspace.TypeSet:
		n, err := readLength(br)
		if err != nil {
			return nil, err
		}
		s := set.New()
		for i := uint64(0); i < n; i++ {
			m, err := readBytes(br)
			if err != nil {
				return nil, err
			}
			s.Add(string(m))
		}
		return keyspace.NewSetValue(s), nil

	case keyspace.TypeHash:
		n, err := readLength(br)
		if err != nil {
			return nil, err
		}
		h := hash.New()
		for i := uint64(0); i < n; i++ {
			field, err := readBytes(br)
			if err != nil {
				return nil, err
			}
			value, err := readBytes(br)
			if err != nil {
				return nil, err
			}
			h.Set(string(field), value)
		}
		return keyspace.NewHashValue(h), nil

	case keyspace.TypeZSet:
		n, err := readLength(br)
		if err != nil {
			return nil, err
		}
		z := zset.New()
		for i := uint64(0); i < n; i++ {
			member, err := readBytes(br)
			if err != nil {
				return nil, err
			}
			buf := make([]byte, 8)
			if _, err := io.ReadFull(br, buf); err != nil {
				return nil, err
			}
			score := math.Float64frombits(binary.BigEndian.Uint64(buf))
			z.Add(score, string(member))
		}
		return keyspace.NewZSetValue(z), nil
	}
	return nil, ErrCorrupt
}
