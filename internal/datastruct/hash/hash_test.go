package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetDelExists(t *testing.T) {
	h := New()

	assert.True(t, h.Set("f1", []byte("v1")))
	assert.False(t, h.Set("f1", []byte("v2")), "second Set on existing field reports update, not creation")

	v, ok := h.Get("f1")
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), v)

	assert.True(t, h.Exists("f1"))
	assert.EqualValues(t, 1, h.Del("f1", "nope"))
	assert.False(t, h.Exists("f1"))
}

func TestIncrBy(t *testing.T) {
	h := New()
	h.Set("counter", []byte("10"))

	n, err := h.IncrBy("counter", 5)
	require.NoError(t, err)
	assert.EqualValues(t, 15, n)

	h.Set("notnum", []byte("abc"))
	_, err = h.IncrBy("notnum", 1)
	assert.Error(t, err)
}

func TestSetIfAbsent(t *testing.T) {
	h := New()
	assert.True(t, h.SetIfAbsent("f", []byte("v1")))
	assert.False(t, h.SetIfAbsent("f", []byte("v2")))

	v, _ := h.Get("f")
	assert.Equal(t, []byte("v1"), v)
}

func TestLenAndGetAll(t *testing.T) {
	h := New()
	h.Set("a", []byte("1"))
	h.Set("b", []byte("2"))
	assert.EqualValues(t, 2, h.Len())
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, h.GetAll())
}
