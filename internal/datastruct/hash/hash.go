// Package hash implements the Hash container (spec §3, §4.2), generalizing
// the teacher's datastruct/hash/hash.go (Put/Get/Del map wrapper) with
// Exists/GetAll/IncrBy/SetIfAbsent per the spec.
package hash

import (
	"errors"
	"strconv"
)

var ErrNotInteger = errors.New("ERR hash value is not an integer")

// Hash is a field->value map.
type Hash interface {
	Set(field string, value []byte) bool // true if field was newly created
	Get(field string) ([]byte, bool)
	Del(fields ...string) int64
	Exists(field string) bool
	GetAll() map[string][]byte
	Len() int64
	IncrBy(field string, delta int64) (int64, error)
	SetIfAbsent(field string, value []byte) bool
	ToCmd(key string) [][]byte
}

type hashEntity struct {
	data map[string][]byte
}

func New() Hash {
	return &hashEntity{data: make(map[string][]byte)}
}

func (h *hashEntity) Set(field string, value []byte) bool {
	_, existed := h.data[field]
	h.data[field] = value
	return !existed
}

func (h *hashEntity) Get(field string) ([]byte, bool) {
	v, ok := h.data[field]
	return v, ok
}

func (h *hashEntity) Del(fields ...string) int64 {
	var count int64
	for _, f := range fields {
		if _, ok := h.data[f]; ok {
			delete(h.data, f)
			count++
		}
	}
	return count
}

func (h *hashEntity) Exists(field string) bool {
	_, ok := h.data[field]
	return ok
}

func (h *hashEntity) GetAll() map[string][]byte { return h.data }

func (h *hashEntity) Len() int64 { return int64(len(h.data)) }

// IncrBy fails cleanly on a non-integer current value, per spec §9's
// correction of the source's ambiguous-on-parse-failure behavior.
func (h *hashEntity) IncrBy(field string, delta int64) (int64, error) {
	var current int64
	if v, ok := h.data[field]; ok && len(v) > 0 {
		parsed, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
		current = parsed
	}
	result := current + delta
	h.data[field] = []byte(strconv.FormatInt(result, 10))
	return result, nil
}

func (h *hashEntity) SetIfAbsent(field string, value []byte) bool {
	if _, ok := h.data[field]; ok {
		return false
	}
	h.data[field] = value
	return true
}

// ToCmd reconstructs an HSET that recreates this hash, used by AOF rewrite.
func (h *hashEntity) ToCmd(key string) [][]byte {
	args := make([][]byte, 0, 2+2*len(h.data))
	args = append(args, []byte("HSET"), []byte(key))
	for field, value := range h.data {
		args = append(args, []byte(field), value)
	}
	return args
}
