package inmemory

import (
	"context"

	"github.com/mishaschwartz/Magpie/pkg/api/repos"
	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
)

func (s *Store) CreateEntry(
	ctx context.Context,
	logger logx.Logger,
	entry magpie.PermissionEntry,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[entry.ResourceID]; !ok {
		return magpie.ErrResourceNotFound
	}

	for _, existing := range s.entries {
		if existing == entry {
			logger.Error(errEntryAlreadyExists, magpie.ErrEntryAlreadyExists)
			return magpie.ErrEntryAlreadyExists
		}
	}

	s.entries = append(s.entries, entry)

	logger.Debug(success)
	return nil
}

func (s *Store) DeleteEntry(
	ctx context.Context,
	logger logx.Logger,
	entry magpie.PermissionEntry,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.entries {
		if existing == entry {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			logger.Debug(success)
			return nil
		}
	}

	logger.Error(errEntryNotFound, magpie.ErrEntryNotFound)
	return magpie.ErrEntryNotFound
}

func (s *Store) ListEntries(
	ctx context.Context,
	logger logx.Logger,
	query repos.ListEntriesQuery,
) ([]magpie.PermissionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wantResource := make(map[int64]struct{}, len(query.ResourceIDs))
	for _, id := range query.ResourceIDs {
		wantResource[id] = struct{}{}
	}
	wantPrincipal := make(map[magpie.Principal]struct{}, len(query.Principals))
	for _, p := range query.Principals {
		wantPrincipal[p] = struct{}{}
	}

	var entries []magpie.PermissionEntry
	for _, entry := range s.entries {
		if _, ok := wantResource[entry.ResourceID]; !ok {
			continue
		}
		if _, ok := wantPrincipal[entry.Principal]; !ok {
			continue
		}
		if query.Action != "" && entry.Action != query.Action {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (s *Store) DeleteEntriesForResources(
	ctx context.Context,
	logger logx.Logger,
	resourceIDs []int64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteEntriesLocked(resourceIDs)
	return nil
}

func (s *Store) deleteEntriesLocked(resourceIDs []int64) {
	doomed := make(map[int64]struct{}, len(resourceIDs))
	for _, id := range resourceIDs {
		doomed[id] = struct{}{}
	}

	kept := s.entries[:0]
	for _, entry := range s.entries {
		if _, ok := doomed[entry.ResourceID]; !ok {
			kept = append(kept, entry)
		}
	}
	s.entries = kept
}
