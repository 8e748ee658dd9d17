package pipeline

import "sync"

// resultStore holds finished packages until a caller takes them. It is the target of the results relay.
type resultStore struct {
	mu    sync.Mutex
	items map[string]*Package
}

func newResultStore() *resultStore {
	return &resultStore{items: make(map[string]*Package)}
}

// Push stores the package of msg under its identity, replacing any package with the same identity.
// The shutdown signal is accepted and ignored.
func (rs *resultStore) Push(msg Message) bool {
	pkg, ok := msg.Package()
	if !ok {
		return true
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.items[pkg.ID()] = pkg

	return true
}

// take removes and returns the package identified by id.
func (rs *resultStore) take(id string) (*Package, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	pkg, ok := rs.items[id]
	if ok {
		delete(rs.items, id)
	}

	return pkg, ok
}

func (rs *resultStore) len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return len(rs.items)
}
