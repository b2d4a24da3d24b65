package server

import (
	"sync"

	"github.com/google/uuid"
)

// registry tracks live connections and their room subscriptions. Every
// subscription is indexed both ways so a disconnect removes it from each room.
type registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[uuid.UUID]*room
	subs    map[string]map[uuid.UUID]struct{}
}

func newRegistry() *registry {
	return &registry{
		clients: make(map[string]*Client),
		rooms:   make(map[uuid.UUID]*room),
		subs:    make(map[string]map[uuid.UUID]struct{}),
	}
}

func (r *registry) add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[c.id] = c
	if _, ok := r.subs[c.id]; !ok {
		r.subs[c.id] = make(map[uuid.UUID]struct{})
	}
}

// remove drops the connection and every subscription it holds. It reports
// whether the connection was registered and how many subscriptions it had.
func (r *registry) remove(c *Client) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c.id]; !ok {
		return false, 0
	}

	n := 0
	for chatId := range r.subs[c.id] {
		if rm, ok := r.rooms[chatId]; ok {
			if rm.remove(c) {
				n++
			}
			if rm.empty() {
				delete(r.rooms, chatId)
			}
		}
	}

	delete(r.subs, c.id)
	delete(r.clients, c.id)
	return true, n
}

// join subscribes c to chatId and reports whether the subscription is new.
// join subscribes c to a chat. added reports whether the subscription is
// new; registered is false when c has already been removed.
func (r *registry) join(c *Client, chatId uuid.UUID) (added, registered bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.subs[c.id]
	if !ok {
		return false, false
	}
	if _, ok := subs[chatId]; ok {
		return false, true
	}

	rm, ok := r.rooms[chatId]
	if !ok {
		rm = newRoom(chatId)
		r.rooms[chatId] = rm
	}
	rm.add(c)
	subs[chatId] = struct{}{}
	return true, true
}

func (r *registry) leave(c *Client, chatId uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.subs[c.id]
	if !ok {
		return false
	}
	if _, ok := subs[chatId]; !ok {
		return false
	}
	delete(subs, chatId)

	if rm, ok := r.rooms[chatId]; ok {
		rm.remove(c)
		if rm.empty() {
			delete(r.rooms, chatId)
		}
	}
	return true
}

func (r *registry) subscribers(chatId uuid.UUID) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[chatId]
	if !ok {
		return nil
	}
	return rm.snapshot()
}

func (r *registry) isSubscribed(c *Client, chatId uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.subs[c.id][chatId]
	return ok
}

func (r *registry) all() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

func (r *registry) numClients() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *registry) numRooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
