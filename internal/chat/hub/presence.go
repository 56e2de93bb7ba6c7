package hub

import (
	"sync"
)

// Registry is the in-memory presence map: user identity to the set of live
// connections that joined under it. A user may hold several connections at
// once (multi-device); presence flips offline only when the last one goes.
// The registry is owned by a Hub instance and injected where needed; there
// is deliberately no package-level singleton, so horizontally scaled server
// instances each carry their own.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]map[*Client]struct{})}
}

// Add registers a connection under its user and reports whether it was the
// user's first live connection. Adding the same client twice is a no-op.
func (r *Registry) Add(c *Client) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[c.userID]
	if !ok {
		conns = make(map[*Client]struct{})
		r.users[c.userID] = conns
	}
	first = len(conns) == 0
	conns[c] = struct{}{}
	return first
}

// Remove drops a connection and reports whether it was the user's last one.
// Removing an unregistered client reports false.
func (r *Registry) Remove(c *Client) (last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.users[c.userID]
	if !ok {
		return false
	}
	if _, ok := conns[c]; !ok {
		return false
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(r.users, c.userID)
		return true
	}
	return false
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// OnlineUserIDs snapshots the ids of every user with at least one live
// connection, for the online-users reply on join.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	return ids
}

// ClientsFor snapshots the connections currently joined under userID.
func (r *Registry) ClientsFor(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.users[userID]
	clients := make([]*Client, 0, len(conns))
	for c := range conns {
		clients = append(clients, c)
	}
	return clients
}

// AllClients snapshots every registered connection.
func (r *Registry) AllClients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var clients []*Client
	for _, conns := range r.users {
		for c := range conns {
			clients = append(clients, c)
		}
	}
	return clients
}
