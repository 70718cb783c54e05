package session

import "testing"

func TestGroupTableCreate(t *testing.T) {
	t.Parallel()

	gt := newGroupTable()
	g := &Group{ID: 1, Name: "red-team", OwnerID: 42}

	if !gt.Create(g) {
		t.Fatal("Create() = false for a brand new group id")
	}

	got, ok := gt.Get(1)
	if !ok {
		t.Fatal("Get() reports missing group right after Create()")
	}
	if got != g {
		t.Error("Get() returned a different *Group than was created")
	}
}

func TestGroupTableCreateDuplicateIsNoop(t *testing.T) {
	t.Parallel()

	gt := newGroupTable()
	first := &Group{ID: 1, Name: "red-team"}
	second := &Group{ID: 1, Name: "blue-team"}

	if !gt.Create(first) {
		t.Fatal("Create() = false for the first registration")
	}
	if gt.Create(second) {
		t.Error("Create() = true for a duplicate group id, want false")
	}

	got, _ := gt.Get(1)
	if got != first {
		t.Error("Get() returned the second Create()'s group, want the first")
	}
}

func TestGroupTableDestroy(t *testing.T) {
	t.Parallel()

	gt := newGroupTable()
	gt.Create(&Group{ID: 5})

	if !gt.Destroy(5) {
		t.Fatal("Destroy() = false for an existing group id")
	}

	if _, ok := gt.Get(5); ok {
		t.Error("Get() still finds a destroyed group")
	}
}

func TestGroupTableDestroyUnknownIsNoop(t *testing.T) {
	t.Parallel()

	gt := newGroupTable()

	if gt.Destroy(99) {
		t.Error("Destroy() = true for a group id that was never created")
	}
}

// TestGroupTableDestroyedIDNeverReenters is the core invariant of the
// group table: once an id is destroyed, it can never be recreated for
// the lifetime of the table, even though the entry is removed from the
// live map.
func TestGroupTableDestroyedIDNeverReenters(t *testing.T) {
	t.Parallel()

	gt := newGroupTable()
	gt.Create(&Group{ID: 7, Name: "original"})
	gt.Destroy(7)

	if gt.Create(&Group{ID: 7, Name: "resurrected"}) {
		t.Fatal("Create() = true for a previously-destroyed group id")
	}
	if _, ok := gt.Get(7); ok {
		t.Error("a resurrected group id is visible via Get()")
	}
}

func TestGroupTableGetMissing(t *testing.T) {
	t.Parallel()

	gt := newGroupTable()
	if _, ok := gt.Get(123); ok {
		t.Error("Get() reports found for an id that was never created")
	}
}
