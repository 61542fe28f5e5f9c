package inmemory

import (
	"context"

	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
)

func (s *Store) GetSyncState(
	ctx context.Context,
	logger logx.Logger,
	serviceType string,
) (magpie.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.syncStates[serviceType]
	if !ok {
		return magpie.SyncState{}, magpie.ErrSyncStateNotFound
	}

	return copySyncState(state), nil
}

func (s *Store) PutSyncState(
	ctx context.Context,
	logger logx.Logger,
	state magpie.SyncState,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.syncStates[state.ServiceType] = copySyncState(state)

	logger.Debug(success)
	return nil
}

func copySyncState(state magpie.SyncState) magpie.SyncState {
	known := make(map[string]struct{}, len(state.KnownRemoteIDs))
	for id := range state.KnownRemoteIDs {
		known[id] = struct{}{}
	}
	state.KnownRemoteIDs = known
	return state
}
