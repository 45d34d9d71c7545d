// Package str implements the String container (spec §3, §4.2), grounded on
// the teacher's datastruct/string/string.go shape (a thin wrapper with a
// ToCmd adapter) and extended with Append/StrLen/IncrBy per the spec.
package str

import (
	"errors"
	"strconv"
)

var (
	ErrNotInteger = errors.New("ERR value is not an integer or out of range")
	ErrOverflow   = errors.New("ERR increment or decrement would overflow")
)

// String is a mutable byte-string value.
type String interface {
	Bytes() []byte
	Set(value []byte)
	Append(suffix []byte) int64
	Len() int64
	IncrBy(delta int64) (int64, error)
	SetRange(offset int64, value []byte) int64
	ToCmd(key string) [][]byte
}

type stringEntity struct {
	data []byte
}

func New(value []byte) String {
	return &stringEntity{data: value}
}

func (s *stringEntity) Bytes() []byte { return s.data }

func (s *stringEntity) Set(value []byte) { s.data = value }

func (s *stringEntity) Append(suffix []byte) int64 {
	s.data = append(s.data, suffix...)
	return int64(len(s.data))
}

func (s *stringEntity) Len() int64 { return int64(len(s.data)) }

// IncrBy parses the current contents as a canonical signed 64-bit integer
// and adds delta, failing (without mutating) on a non-integer payload or on
// overflow — per spec §3, overflow is a failure, not a wrap.
func (s *stringEntity) IncrBy(delta int64) (int64, error) {
	var current int64
	if len(s.data) > 0 {
		v, err := strconv.ParseInt(string(s.data), 10, 64)
		if err != nil || strconv.FormatInt(v, 10) != string(s.data) {
			return 0, ErrNotInteger
		}
		current = v
	}

	result := current + delta
	if (delta > 0 && result < current) || (delta < 0 && result > current) {
		return 0, ErrOverflow
	}

	s.data = []byte(strconv.FormatInt(result, 10))
	return result, nil
}

// SetRange overwrites data starting at offset, zero-padding if offset falls
// beyond the current length, and returns the resulting length.
func (s *stringEntity) SetRange(offset int64, value []byte) int64 {
	end := offset + int64(len(value))
	if end > int64(len(s.data)) {
		grown := make([]byte, end)
		copy(grown, s.data)
		s.data = grown
	}
	copy(s.data[offset:end], value)
	return int64(len(s.data))
}

// ToCmd reconstructs a SET that recreates this value, used by AOF rewrite.
func (s *stringEntity) ToCmd(key string) [][]byte {
	return [][]byte{[]byte("SET"), []byte(key), s.data}
}
