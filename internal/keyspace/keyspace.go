package keyspace

import (
	"math/rand"
	"time"

	"github.com/minidb/goredis/internal/util"
)

// TTL sentinels, matching Redis's PTTL/TTL convention.
const (
	TTLNoKey       = -2
	TTLPersistent  = -1
)

// Stats surfaces a cheap snapshot of keyspace activity; the snapshot
// writer reads its key and expiry counts for the RESIZEDB record.
type Stats struct {
	Keys       int64
	Expires    int64
	Hits       uint64
	Misses     uint64
	Expired    uint64
	Evicted    uint64
}

// Keyspace is one logical database: a key->Value map plus its expiration
// and version bookkeeping (spec §4.3). It generalizes the teacher's
// datastore.KVStore (a single global map guarded by the caller) but, per
// spec §5's single-writer-per-database model, carries NO internal mutex —
// it is only ever touched from the one executor goroutine that owns it,
// the same invariant the teacher's DBExecutor.run() relies on.
type Keyspace struct {
	index int

	data     map[string]*Value
	versions map[string]uint64

	policy    EvictionPolicy
	maxMemory int64

	rng   *rand.Rand
	stats Stats
}

// New creates an empty keyspace numbered idx (its SELECT index), bounded
// by maxMemory keys (0 = unbounded) and evicted per policy when full.
func New(idx int, policy EvictionPolicy, maxMemory int64) *Keyspace {
	return &Keyspace{
		index:     idx,
		data:      make(map[string]*Value),
		versions:  make(map[string]uint64),
		policy:    policy,
		maxMemory: maxMemory,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano() + int64(idx))),
	}
}

func (ks *Keyspace) Index() int { return ks.index }

// SetMaxMemory changes the key-count bound future writes are checked
// against and returns the previous bound. Used by persistence's startup
// restore to bypass OOM rejection while replaying state the keyspace
// already held before the process restarted — that state was already
// accepted once and must not be second-guessed against today's bound.
func (ks *Keyspace) SetMaxMemory(n int64) int64 {
	prev := ks.maxMemory
	ks.maxMemory = n
	return prev
}

// expireIfDue deletes key if its TTL has passed, bumping Expired stats.
// Returns true if the key is now absent (either because it never existed
// or because it was just reaped).
func (ks *Keyspace) expireIfDue(key string) bool {
	v, ok := ks.data[key]
	if !ok {
		return true
	}
	if v.ExpireAt != nil && !v.ExpireAt.After(time.Now()) {
		delete(ks.data, key)
		ks.bumpVersion(key)
		ks.stats.Expired++
		return true
	}
	return false
}

// Get returns the live value for key, applying lazy expiration first and
// recording an access for eviction bookkeeping.
func (ks *Keyspace) Get(key string) (*Value, bool) {
	if ks.expireIfDue(key) {
		ks.stats.Misses++
		return nil, false
	}
	v := ks.data[key]
	v.touch()
	ks.stats.Hits++
	return v, true
}

// Peek is like Get but does not count as an access: it leaves the LRU/LFU
// bookkeeping and the hit/miss stats untouched.
func (ks *Keyspace) Peek(key string) (*Value, bool) {
	if ks.expireIfDue(key) {
		return nil, false
	}
	return ks.data[key], true
}

// Set installs value at key, replacing anything previously there and
// clearing any TTL — matching SET's default semantics (spec §4.1). Returns
// ErrOOM, leaving the keyspace untouched, if key is new and NoEviction is
// in effect at the maxMemory bound (spec §4.3, §7).
func (ks *Keyspace) Set(key string, value *Value) error {
	if err := ks.evictIfNeeded(key); err != nil {
		return err
	}
	ks.data[key] = value
	ks.bumpVersion(key)
	return nil
}

// SetKeepTTL installs value at key but preserves an existing TTL, used by
// commands like GETSET's sibling SETRANGE-style in-place mutators where
// the spec says TTL must survive (spec §4.1 edge cases). Returns ErrOOM
// under the same conditions as Set.
func (ks *Keyspace) SetKeepTTL(key string, value *Value) error {
	if err := ks.evictIfNeeded(key); err != nil {
		return err
	}
	if old, ok := ks.data[key]; ok {
		value.ExpireAt = old.ExpireAt
	}
	ks.data[key] = value
	ks.bumpVersion(key)
	return nil
}

func (ks *Keyspace) Del(keys ...string) int64 {
	var count int64
	for _, k := range keys {
		if ks.expireIfDue(k) {
			continue
		}
		if _, ok := ks.data[k]; ok {
			delete(ks.data, k)
			ks.bumpVersion(k)
			count++
		}
	}
	return count
}

func (ks *Keyspace) Exists(key string) bool {
	if ks.expireIfDue(key) {
		return false
	}
	_, ok := ks.data[key]
	return ok
}

// ExpireAbsoluteMs sets key's expiration to the given absolute Unix time
// in milliseconds. A value <= now expires the key immediately, matching
// Redis's PEXPIREAT semantics.
func (ks *Keyspace) ExpireAbsoluteMs(key string, whenMs int64) bool {
	if ks.expireIfDue(key) {
		return false
	}
	v, ok := ks.data[key]
	if !ok {
		return false
	}
	when := time.UnixMilli(whenMs)
	if !when.After(time.Now()) {
		delete(ks.data, key)
		ks.bumpVersion(key)
		ks.stats.Expired++
		return true
	}
	v.ExpireAt = &when
	ks.bumpVersion(key)
	return true
}

func (ks *Keyspace) Persist(key string) bool {
	if ks.expireIfDue(key) {
		return false
	}
	v, ok := ks.data[key]
	if !ok || v.ExpireAt == nil {
		return false
	}
	v.ExpireAt = nil
	ks.bumpVersion(key)
	return true
}

// TTLMs returns the remaining time-to-live in milliseconds, TTLPersistent
// if the key exists with no TTL, or TTLNoKey if the key is absent.
func (ks *Keyspace) TTLMs(key string) int64 {
	if ks.expireIfDue(key) {
		return TTLNoKey
	}
	v, ok := ks.data[key]
	if !ok {
		return TTLNoKey
	}
	if v.ExpireAt == nil {
		return TTLPersistent
	}
	remaining := time.Until(*v.ExpireAt).Milliseconds()
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// KeysMatching returns every live key matching the glob pattern, reaping
// expired keys encountered along the way.
func (ks *Keyspace) KeysMatching(pattern string) []string {
	var out []string
	for k := range ks.data {
		if ks.expireIfDue(k) {
			continue
		}
		if util.Match(pattern, k) {
			out = append(out, k)
		}
	}
	return out
}

// RandomKey returns an arbitrary live key, or "" if the keyspace is empty.
// Expired entries that happen to be sampled are reaped.
func (ks *Keyspace) RandomKey() (string, bool) {
	for attempts := 0; attempts < len(ks.data)+1; attempts++ {
		if len(ks.data) == 0 {
			return "", false
		}
		target := ks.rng.Intn(len(ks.data))
		i := 0
		for k := range ks.data {
			if i == target {
				if ks.expireIfDue(k) {
					break
				}
				return k, true
			}
			i++
		}
	}
	return "", false
}

// Rename moves src's value (and TTL) to dst, overwriting dst if present.
func (ks *Keyspace) Rename(src, dst string) bool {
	if ks.expireIfDue(src) {
		return false
	}
	v, ok := ks.data[src]
	if !ok {
		return false
	}
	delete(ks.data, src)
	ks.data[dst] = v
	ks.bumpVersion(src)
	ks.bumpVersion(dst)
	return true
}

// Flush discards every key in the keyspace.
func (ks *Keyspace) Flush() {
	for k := range ks.data {
		ks.bumpVersion(k)
	}
	ks.data = make(map[string]*Value)
}

func (ks *Keyspace) Size() int64 { return int64(len(ks.data)) }

func (ks *Keyspace) Stats() Stats {
	s := ks.stats
	s.Keys = ks.Size()
	for _, v := range ks.data {
		if v.ExpireAt != nil {
			s.Expires++
		}
	}
	return s
}

// Version returns key's monotonic write counter, the basis for WATCH's
// optimistic-concurrency check (spec §7).
func (ks *Keyspace) Version(key string) uint64 { return ks.versions[key] }

func (ks *Keyspace) bumpVersion(key string) { ks.versions[key]++ }

// ForEach visits every live key, reaping expired ones along the way. The
// callback must not mutate the keyspace.
func (ks *Keyspace) ForEach(fn func(key string, v *Value)) {
	for k := range ks.data {
		if ks.expireIfDue(k) {
			continue
		}
		fn(k, ks.data[k])
	}
}
