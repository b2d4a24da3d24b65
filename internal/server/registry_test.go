package server

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	reg := newRegistry()
	a := &Client{id: "a"}
	b := &Client{id: "b"}
	chatId := uuid.New()

	added, registered := reg.join(a, chatId)
	assert.False(t, added)
	assert.False(t, registered, "expected join of unregistered client to fail")

	reg.add(a)
	reg.add(b)
	assert.Equal(t, 2, reg.numClients())

	added, registered = reg.join(a, chatId)
	assert.True(t, added)
	assert.True(t, registered)
	added, registered = reg.join(a, chatId)
	assert.False(t, added, "expected repeated join to report no change")
	assert.True(t, registered)
	added, _ = reg.join(b, chatId)
	assert.True(t, added)
	assert.ElementsMatch(t, []*Client{a, b}, reg.subscribers(chatId))

	assert.True(t, reg.leave(a, chatId))
	assert.False(t, reg.leave(a, chatId), "expected repeated leave to report no change")
	assert.Equal(t, []*Client{b}, reg.subscribers(chatId))

	ok, n := reg.remove(b)
	assert.True(t, ok)
	assert.Equal(t, 1, n)
	assert.Empty(t, reg.subscribers(chatId))
	assert.Equal(t, 0, reg.numRooms())

	ok, _ = reg.remove(b)
	assert.False(t, ok, "expected removing an unknown client to report false")
}
