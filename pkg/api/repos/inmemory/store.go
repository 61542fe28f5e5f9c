package inmemory

import (
	"sync"

	"github.com/mishaschwartz/Magpie/pkg/magpie"
)

// Store keeps the whole engine state in process memory. It implements
// every repo interface in pkg/api/repos and is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	nextResourceID int64
	resources      map[int64]magpie.Resource

	entries []magpie.PermissionEntry

	memberships map[string]map[string]struct{}

	syncStates map[string]magpie.SyncState
}

func NewStore() *Store {
	return &Store{
		nextResourceID: 1,
		resources:      make(map[int64]magpie.Resource),
		memberships:    make(map[string]map[string]struct{}),
		syncStates:     make(map[string]magpie.SyncState),
	}
}

func (s *Store) childrenOf(resourceID int64) []int64 {
	var children []int64
	for id, r := range s.resources {
		if r.ParentID != nil && *r.ParentID == resourceID {
			children = append(children, id)
		}
	}
	return children
}

// subtreeOf returns resourceID and every descendant, parents before
// children.
func (s *Store) subtreeOf(resourceID int64) []int64 {
	ids := []int64{resourceID}
	for i := 0; i < len(ids); i++ {
		ids = append(ids, s.childrenOf(ids[i])...)
	}
	return ids
}
