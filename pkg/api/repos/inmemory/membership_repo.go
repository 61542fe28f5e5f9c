package inmemory

import (
	"context"
	"sort"

	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
)

func (s *Store) SetMembership(
	ctx context.Context,
	logger logx.Logger,
	user string,
	group string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, ok := s.memberships[user]
	if !ok {
		groups = make(map[string]struct{})
		s.memberships[user] = groups
	}

	if _, ok := groups[group]; ok {
		logger.Error(errMembershipAlreadyExists, magpie.ErrMembershipAlreadyExists)
		return magpie.ErrMembershipAlreadyExists
	}

	groups[group] = struct{}{}

	logger.Debug(success)
	return nil
}

func (s *Store) UnsetMembership(
	ctx context.Context,
	logger logx.Logger,
	user string,
	group string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, ok := s.memberships[user]
	if !ok {
		logger.Error(errMembershipNotFound, magpie.ErrMembershipNotFound)
		return magpie.ErrMembershipNotFound
	}

	if _, ok := groups[group]; !ok {
		logger.Error(errMembershipNotFound, magpie.ErrMembershipNotFound)
		return magpie.ErrMembershipNotFound
	}

	delete(groups, group)

	logger.Debug(success)
	return nil
}

func (s *Store) ListGroups(
	ctx context.Context,
	logger logx.Logger,
	user string,
) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var groups []string
	for group := range s.memberships[user] {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	return groups, nil
}
