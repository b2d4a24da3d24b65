// Package transcript holds the client-side view of one chat: every message
// known so far, each exactly once, oldest first.
package transcript

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/npezzotti/dealchat/internal/types"
)

// Transcript merges messages from history pages, send acknowledgements and
// push events. A message id seen before is ignored, so the same message
// arriving over several paths is shown once.
type Transcript struct {
	mu   sync.RWMutex
	ids  map[uuid.UUID]struct{}
	msgs []types.Message
}

func New() *Transcript {
	return &Transcript{ids: make(map[uuid.UUID]struct{})}
}

// Merge adds the messages not already present and returns how many were
// added. Input order does not matter.
func (t *Transcript) Merge(msgs ...types.Message) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	added := 0
	for _, m := range msgs {
		if _, ok := t.ids[m.Id]; ok {
			continue
		}
		t.ids[m.Id] = struct{}{}

		i, _ := slices.BinarySearchFunc(t.msgs, m, func(a, b types.Message) int {
			switch {
			case a.Before(b):
				return -1
			case b.Before(a):
				return 1
			default:
				return 0
			}
		})
		// equal keys keep arrival order
		for i < len(t.msgs) && !m.Before(t.msgs[i]) {
			i++
		}
		t.msgs = slices.Insert(t.msgs, i, m)
		added++
	}
	return added
}

// Messages returns a copy of the transcript, oldest first.
func (t *Transcript) Messages() []types.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.msgs)
}

func (t *Transcript) Contains(id uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.ids[id]
	return ok
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}
