package services

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/interfaces"
	"github.com/ZanzyTHEbar/path-helpers/pathfs/filesystem/types"

	"github.com/armon/go-radix"
)

// NameReservations tracks names handed out but not yet created, keyed by full
// path in a radix tree so everything reserved below a directory can be listed
// by prefix. Its Exists method layers the reservations over another predicate.
type NameReservations struct {
	mu     sync.RWMutex
	tree   *radix.Tree
	exists interfaces.ExistsFunc
}

// NewNameReservations creates an empty index over exists. A nil exists treats
// every unreserved path as free.
func NewNameReservations(exists interfaces.ExistsFunc) *NameReservations {
	return &NameReservations{
		tree:   radix.New(),
		exists: exists,
	}
}

// Reserve records entry. It returns false if entry was already reserved.
func (r *NameReservations) Reserve(entry types.PathEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, updated := r.tree.Insert(entry.String(), entry)
	return !updated
}

// Release forgets entry and reports whether it was reserved
func (r *NameReservations) Release(entry types.PathEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, deleted := r.tree.Delete(entry.String())
	return deleted
}

// IsReserved reports whether entry has been reserved
func (r *NameReservations) IsReserved(entry types.PathEntry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, found := r.tree.Get(entry.String())
	return found
}

// ReservedUnder returns every reservation strictly below dir, in key order
func (r *NameReservations) ReservedUnder(dir types.PathEntry) []types.PathEntry {
	prefix := strings.TrimSuffix(dir.String(), string(filepath.Separator)) + string(filepath.Separator)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []types.PathEntry
	r.tree.WalkPrefix(prefix, func(_ string, v interface{}) bool {
		out = append(out, v.(types.PathEntry))
		return false
	})
	return out
}

// Len returns the number of reservations
func (r *NameReservations) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree.Len()
}

// Exists reports a reserved entry as taken, otherwise defers to the wrapped predicate
func (r *NameReservations) Exists(entry types.PathEntry) (bool, error) {
	if r.IsReserved(entry) {
		return true, nil
	}
	if r.exists == nil {
		return false, nil
	}
	return r.exists(entry)
}

var _ interfaces.ExistsFunc = (*NameReservations)(nil).Exists
