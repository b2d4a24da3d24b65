package server

import "github.com/google/uuid"

// room is the set of connections subscribed to one chat.
type room struct {
	id      uuid.UUID
	clients map[string]*Client
}

func newRoom(id uuid.UUID) *room {
	return &room{
		id:      id,
		clients: make(map[string]*Client),
	}
}

func (r *room) add(c *Client) bool {
	if _, ok := r.clients[c.id]; ok {
		return false
	}
	r.clients[c.id] = c
	return true
}

func (r *room) remove(c *Client) bool {
	if _, ok := r.clients[c.id]; !ok {
		return false
	}
	delete(r.clients, c.id)
	return true
}

func (r *room) empty() bool {
	return len(r.clients) == 0
}

func (r *room) snapshot() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}
