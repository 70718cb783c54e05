package session

// Group is a named collection layered on top of the peer mesh.
// The wire messages GROUP_CREATE/GROUP_DESTROY exist and are
// replicated; membership management beyond create/destroy is out of
// scope.
type Group struct {
	ID      uint32
	Name    string
	Data    []byte
	OwnerID uint32 // player id of the creator
}

// groupTable owns the groups map and destroyed_groups set for one
// session, enforcing the invariant that a destroyed group id never
// re-enters groups for the session's lifetime.
type groupTable struct {
	groups    map[uint32]*Group
	destroyed map[uint32]struct{}
}

func newGroupTable() *groupTable {
	return &groupTable{
		groups:    make(map[uint32]*Group),
		destroyed: make(map[uint32]struct{}),
	}
}

// Create registers a new group. It is a no-op (returns false) if the id
// was previously destroyed or already exists.
func (t *groupTable) Create(g *Group) bool {
	if _, gone := t.destroyed[g.ID]; gone {
		return false
	}
	if _, exists := t.groups[g.ID]; exists {
		return false
	}
	t.groups[g.ID] = g
	return true
}

// Destroy retires a group id permanently. It is a no-op (returns false)
// if the group did not exist.
func (t *groupTable) Destroy(id uint32) bool {
	if _, exists := t.groups[id]; !exists {
		return false
	}
	delete(t.groups, id)
	t.destroyed[id] = struct{}{}
	return true
}

// Get returns the group for id, if it currently exists.
func (t *groupTable) Get(id uint32) (*Group, bool) {
	g, ok := t.groups[id]
	return g, ok
}
