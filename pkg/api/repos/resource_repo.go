package repos

import (
	"context"

	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
)

type CreateResourceQuery struct {
	ServiceType string
	Name        string
	ParentID    *int64
	RemoteID    *string
}

type DeleteResourceQuery struct {
	ResourceID int64
	Cascade    bool
}

type ListResourcesQuery struct {
	ServiceType string
}

type UpdateResourceQuery struct {
	ResourceID int64
	Name       string
}

//go:generate counterfeiter . ResourceRepo

type ResourceRepo interface {
	GetResource(
		ctx context.Context,
		logger logx.Logger,
		resourceID int64,
	) (magpie.Resource, error)

	// GetPath returns the resources from the service root down to
	// resourceID, inclusive.
	GetPath(
		ctx context.Context,
		logger logx.Logger,
		resourceID int64,
	) ([]magpie.Resource, error)

	CreateResource(
		ctx context.Context,
		logger logx.Logger,
		query CreateResourceQuery,
	) (magpie.Resource, error)

	UpdateResource(
		ctx context.Context,
		logger logx.Logger,
		query UpdateResourceQuery,
	) error

	// DeleteResource removes a resource. Without Cascade it fails with
	// magpie.ErrHasChildren when the resource has children; with Cascade
	// the whole subtree and the permission entries attached to it are
	// removed. It returns the ids of every resource deleted.
	DeleteResource(
		ctx context.Context,
		logger logx.Logger,
		query DeleteResourceQuery,
	) ([]int64, error)

	ListResources(
		ctx context.Context,
		logger logx.Logger,
		query ListResourcesQuery,
	) ([]magpie.Resource, error)
}
