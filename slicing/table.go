package slicing

import (
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

// A Table is the registry of slices shared by the channel, the controller and
// the exporters.
type Table struct {
	lock   sync.RWMutex
	slices map[string]*Slice
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		slices: make(map[string]*Slice),
	}
}

// Register adds the slice if no slice with the same ID exists, and returns the
// slice that the table keeps for that ID.
func (t *Table) Register(s *Slice) *Slice {
	t.lock.Lock()
	defer t.lock.Unlock()

	if existing, ok := t.slices[s.ID]; ok {
		return existing
	}

	t.slices[s.ID] = s

	return s
}

// Get returns the slice with the given ID.
func (t *Table) Get(id string) (*Slice, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	s, ok := t.slices[id]

	return s, ok
}

// Len returns the number of slices.
func (t *Table) Len() int {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return len(t.slices)
}

// IDs returns the slice IDs in ascending order.
func (t *Table) IDs() []string {
	t.lock.RLock()
	ids := make([]string, 0, len(t.slices))
	for id := range t.slices {
		ids = append(ids, id)
	}
	t.lock.RUnlock()

	slices.Sort(ids)

	return ids
}

// List returns all slices ordered by ID.
func (t *Table) List() []*Slice {
	t.lock.RLock()
	list := make([]*Slice, 0, len(t.slices))
	for _, s := range t.slices {
		list = append(list, s)
	}
	t.lock.RUnlock()

	slices.SortFunc(list, func(a, b *Slice) int {
		return strings.Compare(a.ID, b.ID)
	})

	return list
}

// Bandwidths returns the current bandwidth of every slice.
func (t *Table) Bandwidths() map[string]int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()

	bw := make(map[string]int64, len(t.slices))
	for id, s := range t.slices {
		bw[id] = s.Bandwidth()
	}

	return bw
}
