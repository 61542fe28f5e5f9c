package inmemory

import (
	"context"

	"github.com/mishaschwartz/Magpie/pkg/api/repos"
	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
)

func (s *Store) GetResource(
	ctx context.Context,
	logger logx.Logger,
	resourceID int64,
) (magpie.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resource, ok := s.resources[resourceID]
	if !ok {
		return magpie.Resource{}, magpie.ErrResourceNotFound
	}

	return resource, nil
}

func (s *Store) GetPath(
	ctx context.Context,
	logger logx.Logger,
	resourceID int64,
) ([]magpie.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resource, ok := s.resources[resourceID]
	if !ok {
		return nil, magpie.ErrResourceNotFound
	}

	var reversed []magpie.Resource
	for {
		reversed = append(reversed, resource)
		if resource.ParentID == nil {
			break
		}
		resource = s.resources[*resource.ParentID]
	}

	path := make([]magpie.Resource, len(reversed))
	for i, r := range reversed {
		path[len(reversed)-1-i] = r
	}

	return path, nil
}

func (s *Store) CreateResource(
	ctx context.Context,
	logger logx.Logger,
	query repos.CreateResourceQuery,
) (magpie.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if query.ParentID == nil {
		for _, r := range s.resources {
			if r.ServiceType == query.ServiceType && r.IsRoot() {
				logger.Error(errServiceRootExists, magpie.ErrServiceRootExists)
				return magpie.Resource{}, magpie.ErrServiceRootExists
			}
		}
	} else {
		parent, ok := s.resources[*query.ParentID]
		if !ok || parent.ServiceType != query.ServiceType {
			logger.Error(errInvalidParent, magpie.ErrInvalidParent)
			return magpie.Resource{}, magpie.ErrInvalidParent
		}
	}

	resource := magpie.Resource{
		ID:          s.nextResourceID,
		Name:        query.Name,
		ServiceType: query.ServiceType,
		ParentID:    query.ParentID,
		RemoteID:    query.RemoteID,
	}
	s.nextResourceID++
	s.resources[resource.ID] = resource

	logger.Debug(success, logx.Data{Key: "resource.id", Value: resource.ID})
	return resource, nil
}

func (s *Store) UpdateResource(
	ctx context.Context,
	logger logx.Logger,
	query repos.UpdateResourceQuery,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resource, ok := s.resources[query.ResourceID]
	if !ok {
		return magpie.ErrResourceNotFound
	}

	resource.Name = query.Name
	s.resources[query.ResourceID] = resource

	return nil
}

func (s *Store) DeleteResource(
	ctx context.Context,
	logger logx.Logger,
	query repos.DeleteResourceQuery,
) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[query.ResourceID]; !ok {
		return nil, magpie.ErrResourceNotFound
	}

	children := s.childrenOf(query.ResourceID)
	if len(children) > 0 && !query.Cascade {
		logger.Error(errHasChildren, magpie.ErrHasChildren)
		return nil, magpie.ErrHasChildren
	}

	deleted := s.subtreeOf(query.ResourceID)
	for _, id := range deleted {
		delete(s.resources, id)
	}
	s.deleteEntriesLocked(deleted)

	logger.Debug(success, logx.Data{Key: "resources.deleted", Value: len(deleted)})
	return deleted, nil
}

func (s *Store) ListResources(
	ctx context.Context,
	logger logx.Logger,
	query repos.ListResourcesQuery,
) ([]magpie.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var resources []magpie.Resource
	for _, r := range s.resources {
		if r.ServiceType == query.ServiceType {
			resources = append(resources, r)
		}
	}

	return resources, nil
}
