package app

import "sync"

// Query keys that views refetch when invalidated.
const (
	QueryTasks      = "tasks"
	QueryBoardTasks = "board-tasks"
)

// Invalidations tracks a version per query key. Views remember the version
// they rendered and refetch once it moves.
type Invalidations struct {
	mu       sync.Mutex
	versions map[string]uint64
}

// NewInvalidations constructs an empty version tracker.
func NewInvalidations() *Invalidations {
	return &Invalidations{versions: map[string]uint64{}}
}

// Bump marks every key as stale.
func (i *Invalidations) Bump(keys ...string) {
	if i == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.versions == nil {
		i.versions = map[string]uint64{}
	}
	for _, key := range keys {
		i.versions[key]++
	}
}

// Version returns the current version of key.
func (i *Invalidations) Version(key string) uint64 {
	if i == nil {
		return 0
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.versions[key]
}
