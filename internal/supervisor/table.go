package supervisor

import "sync"

// Table is the set of live child pids. All access goes through one lock, and
// callers only ever see copies of the set.
type Table struct {
	mu    sync.Mutex
	pids  map[int]struct{}
	order []int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{pids: make(map[int]struct{})}
}

// Add records pid. Adding a tracked pid is a no-op.
func (t *Table) Add(pid int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pids[pid]; ok {
		return
	}
	t.pids[pid] = struct{}{}
	t.order = append(t.order, pid)
}

// Remove forgets pid and reports whether it was tracked.
func (t *Table) Remove(pid int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pids[pid]; !ok {
		return false
	}
	delete(t.pids, pid)
	for i, p := range t.order {
		if p == pid {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// Snapshot returns a copy of the tracked pids in launch order.
func (t *Table) Snapshot() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]int, len(t.order))
	copy(out, t.order)
	return out
}

// Size returns the number of tracked pids.
func (t *Table) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pids)
}

// Contains reports whether pid is tracked.
func (t *Table) Contains(pid int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pids[pid]
	return ok
}

// Clear forgets every pid.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pids = make(map[int]struct{})
	t.order = nil
}
