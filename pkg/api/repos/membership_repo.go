package repos

import (
	"context"

	"github.com/mishaschwartz/Magpie/pkg/logx"
)

//go:generate counterfeiter . MembershipRepo

type MembershipRepo interface {
	SetMembership(
		ctx context.Context,
		logger logx.Logger,
		user string,
		group string,
	) error

	UnsetMembership(
		ctx context.Context,
		logger logx.Logger,
		user string,
		group string,
	) error

	ListGroups(
		ctx context.Context,
		logger logx.Logger,
		user string,
	) ([]string, error)
}
