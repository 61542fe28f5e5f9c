// Package api exposes the engine's boundary operations to the embedding
// administrative layer: permission resolution, entry and membership
// mutation, and sync maintenance. Every mutation invalidates the affected
// cached decisions before it becomes visible, so a revoked permission can
// never resolve from a stale cache.
package api

import (
	"context"

	"github.com/mishaschwartz/Magpie/pkg/acl"
	"github.com/mishaschwartz/Magpie/pkg/api/repos"
	"github.com/mishaschwartz/Magpie/pkg/cache"
	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
	"github.com/mishaschwartz/Magpie/pkg/metrics"
	"github.com/mishaschwartz/Magpie/pkg/syncer"
)

type Service struct {
	store   repos.Store
	cache   *cache.Cache
	engine  *syncer.Engine
	statter metrics.Statter
}

func NewService(
	store repos.Store,
	decisionCache *cache.Cache,
	engine *syncer.Engine,
	statter metrics.Statter,
) *Service {
	return &Service{
		store:   store,
		cache:   decisionCache,
		engine:  engine,
		statter: statter,
	}
}

// Resolve computes the effective decision for a user on (resource, action).
// The user's principal set is the user plus its groups; decisions are
// served from the cache when possible.
func (s *Service) Resolve(
	ctx context.Context,
	logger logx.Logger,
	user string,
	resourceID int64,
	action string,
) (magpie.Decision, error) {
	logger = logger.WithName("resolve")

	groups, err := s.store.ListGroups(ctx, logger, user)
	if err != nil {
		return magpie.DecisionUndefined, err
	}
	principals := acl.ExpandPrincipal(user, groups)

	key := cache.DecisionKey{
		Fingerprint: acl.Fingerprint(principals),
		ResourceID:  resourceID,
		Action:      action,
	}
	if decision, ok := s.cache.GetDecision(key); ok {
		s.statter.Inc(metricCacheHit, 1)
		return decision, nil
	}
	s.statter.Inc(metricCacheMiss, 1)

	path, err := s.store.GetPath(ctx, logger, resourceID)
	if err != nil {
		return magpie.DecisionUndefined, err
	}

	entries, err := s.store.ListEntries(ctx, logger, repos.ListEntriesQuery{
		ResourceIDs: resourceIDs(path),
		Principals:  principals,
		Action:      action,
	})
	if err != nil {
		return magpie.DecisionUndefined, err
	}

	decision := acl.Resolve(path, entries, action)
	s.cache.PutDecision(key, user, decision)
	s.statter.Inc(metricResolved+"."+string(decision), 1)

	return decision, nil
}

// ListEffectivePermissions renders the permission matrix for a user on a
// resource: every action any applicable entry names, with its decision.
func (s *Service) ListEffectivePermissions(
	ctx context.Context,
	logger logx.Logger,
	user string,
	resourceID int64,
) (map[string]magpie.Decision, error) {
	logger = logger.WithName("list-effective-permissions")

	groups, err := s.store.ListGroups(ctx, logger, user)
	if err != nil {
		return nil, err
	}
	principals := acl.ExpandPrincipal(user, groups)

	path, err := s.store.GetPath(ctx, logger, resourceID)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.ListEntries(ctx, logger, repos.ListEntriesQuery{
		ResourceIDs: resourceIDs(path),
		Principals:  principals,
	})
	if err != nil {
		return nil, err
	}

	return acl.EffectiveActions(path, entries), nil
}

// CreateEntry attaches a permission entry, invalidating every cached
// decision the entry could influence first.
func (s *Service) CreateEntry(
	ctx context.Context,
	logger logx.Logger,
	entry magpie.PermissionEntry,
) error {
	logger = logger.WithName("create-entry")

	subtree, err := s.subtreeIDs(ctx, logger, entry.ResourceID)
	if err != nil {
		return err
	}
	s.cache.Apply(cache.ForEntryMutation(subtree))

	return s.store.CreateEntry(ctx, logger, entry)
}

func (s *Service) DeleteEntry(
	ctx context.Context,
	logger logx.Logger,
	entry magpie.PermissionEntry,
) error {
	logger = logger.WithName("delete-entry")

	subtree, err := s.subtreeIDs(ctx, logger, entry.ResourceID)
	if err != nil {
		return err
	}
	s.cache.Apply(cache.ForEntryMutation(subtree))

	return s.store.DeleteEntry(ctx, logger, entry)
}

func (s *Service) CreateResource(
	ctx context.Context,
	logger logx.Logger,
	query repos.CreateResourceQuery,
) (magpie.Resource, error) {
	return s.store.CreateResource(ctx, logger.WithName("create-resource"), query)
}

func (s *Service) DeleteResource(
	ctx context.Context,
	logger logx.Logger,
	query repos.DeleteResourceQuery,
) error {
	logger = logger.WithName("delete-resource")

	subtree, err := s.subtreeIDs(ctx, logger, query.ResourceID)
	if err != nil {
		return err
	}
	s.cache.Apply(cache.ForResourceDeletion(subtree))

	_, err = s.store.DeleteResource(ctx, logger, query)
	return err
}

func (s *Service) SetMembership(
	ctx context.Context,
	logger logx.Logger,
	user string,
	group string,
) error {
	s.cache.Apply(cache.ForMembershipMutation(user))
	return s.store.SetMembership(ctx, logger.WithName("set-membership"), user, group)
}

func (s *Service) UnsetMembership(
	ctx context.Context,
	logger logx.Logger,
	user string,
	group string,
) error {
	s.cache.Apply(cache.ForMembershipMutation(user))
	return s.store.UnsetMembership(ctx, logger.WithName("unset-membership"), user, group)
}

func (s *Service) TriggerSync(
	ctx context.Context,
	logger logx.Logger,
	serviceType string,
) (magpie.SyncState, error) {
	return s.engine.TriggerSync(ctx, logger, serviceType)
}

// RemoteListing reports the remote side's current descriptors for a
// service, served from the listing cache when fresh.
func (s *Service) RemoteListing(
	ctx context.Context,
	logger logx.Logger,
	serviceType string,
) ([]magpie.RemoteResource, error) {
	return s.engine.Listing(ctx, logger, serviceType)
}

func (s *Service) Orphans(
	ctx context.Context,
	logger logx.Logger,
	serviceType string,
) ([]magpie.Resource, error) {
	return s.engine.Orphans(ctx, logger, serviceType)
}

func (s *Service) Clean(
	ctx context.Context,
	logger logx.Logger,
	resourceID int64,
) error {
	return s.engine.Clean(ctx, logger, resourceID)
}

func (s *Service) CleanAll(
	ctx context.Context,
	logger logx.Logger,
	resourceIDs []int64,
) error {
	return s.engine.CleanAll(ctx, logger, resourceIDs)
}

// subtreeIDs returns resourceID plus every descendant, the span a
// recursive entry on resourceID can reach.
func (s *Service) subtreeIDs(
	ctx context.Context,
	logger logx.Logger,
	resourceID int64,
) ([]int64, error) {
	resource, err := s.store.GetResource(ctx, logger, resourceID)
	if err != nil {
		return nil, err
	}

	all, err := s.store.ListResources(ctx, logger, repos.ListResourcesQuery{
		ServiceType: resource.ServiceType,
	})
	if err != nil {
		return nil, err
	}

	childrenOf := make(map[int64][]int64)
	for _, r := range all {
		if r.ParentID != nil {
			childrenOf[*r.ParentID] = append(childrenOf[*r.ParentID], r.ID)
		}
	}

	ids := []int64{resourceID}
	for i := 0; i < len(ids); i++ {
		ids = append(ids, childrenOf[ids[i]]...)
	}

	return ids, nil
}

func resourceIDs(path []magpie.Resource) []int64 {
	ids := make([]int64, len(path))
	for i, r := range path {
		ids[i] = r.ID
	}
	return ids
}
