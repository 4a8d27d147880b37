// Package presence tracks which users currently have at least one live
// connection. State is process-lifetime only; a restart loses it and clients
// rebuild from the online-users query plus subsequent events.
package presence

import "sync"

// Registry maps user ids to their live connection ids. It is the single
// authority for online/offline transitions: the edge detection is computed
// under the same lock as the mutation, so concurrent register/unregister
// calls for one user cannot race to an inconsistent determination.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]map[string]struct{} // userID -> set of connIDs
	owners map[string]string              // connID -> userID reverse lookup
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]map[string]struct{}),
		owners: make(map[string]string),
	}
}

// Register attributes connID to userID and reports whether the user just
// came online (the set was empty before this call).
func (r *Registry) Register(userID, connID string) (becameOnline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		r.conns[userID] = set
	}
	becameOnline = len(set) == 0
	set[connID] = struct{}{}
	r.owners[connID] = userID
	return becameOnline
}

// Unregister removes connID from its owning user's set. It returns the
// owning user id and whether the user just went offline. Unknown connection
// ids are a no-op, so a double disconnect never errors.
func (r *Registry) Unregister(connID string) (userID string, becameOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owners[connID]
	if !ok {
		return "", false
	}
	delete(r.owners, connID)

	set := r.conns[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.conns, userID)
		return userID, true
	}
	return userID, false
}

// ListOnline returns the ids of all users with at least one connection.
// Snapshot consistency across concurrent mutation is not required.
func (r *Registry) ListOnline() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}
