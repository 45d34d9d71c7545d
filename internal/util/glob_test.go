package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchStarAndQuestion(t *testing.T) {
	assert.True(t, Match("*", ""))
	assert.True(t, Match("*", "anything"))
	assert.True(t, Match("h?llo", "hello"))
	assert.False(t, Match("h?llo", "heello"))
	assert.True(t, Match("hel*", "hello"))
	assert.False(t, Match("hel*", "delta"), "match must still check the literal prefix before the star")
}

func TestMatchCharacterClass(t *testing.T) {
	assert.True(t, Match("h[ae]llo", "hello"))
	assert.True(t, Match("h[ae]llo", "hallo"))
	assert.False(t, Match("h[ae]llo", "hillo"))
	assert.True(t, Match("h[^ae]llo", "hillo"))
	assert.True(t, Match("[a-c]at", "bat"))
	assert.False(t, Match("[a-c]at", "zat"))
}

func TestMatchEscapedLiteral(t *testing.T) {
	assert.True(t, Match("a\\*b", "a*b"))
	assert.False(t, Match("a\\*b", "axb"))
}

func TestMatchRequiresFullConsumption(t *testing.T) {
	assert.False(t, Match("abc", "abcd"))
	assert.False(t, Match("abc", "ab"))
	assert.True(t, Match("abc", "abc"))
}
