package repos

import (
	"context"

	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
)

// ListEntriesQuery matches entries attached to any of ResourceIDs for any
// of Principals. An empty Action matches every action.
type ListEntriesQuery struct {
	ResourceIDs []int64
	Principals  []magpie.Principal
	Action      string
}

//go:generate counterfeiter . PermissionEntryRepo

type PermissionEntryRepo interface {
	CreateEntry(
		ctx context.Context,
		logger logx.Logger,
		entry magpie.PermissionEntry,
	) error

	DeleteEntry(
		ctx context.Context,
		logger logx.Logger,
		entry magpie.PermissionEntry,
	) error

	ListEntries(
		ctx context.Context,
		logger logx.Logger,
		query ListEntriesQuery,
	) ([]magpie.PermissionEntry, error)

	DeleteEntriesForResources(
		ctx context.Context,
		logger logx.Logger,
		resourceIDs []int64,
	) error
}
