package inmemory_test

import (
	. "github.com/onsi/ginkgo"

	"github.com/mishaschwartz/Magpie/pkg/api/repos"
	. "github.com/mishaschwartz/Magpie/pkg/api/repos/reposbehaviors"

	"github.com/mishaschwartz/Magpie/pkg/api/repos/inmemory"
)

var _ = Describe("Store", func() {
	var store *inmemory.Store

	BeforeEach(func() {
		store = inmemory.NewStore()
	})

	Describe("as a resource repo", func() {
		BehavesLikeAResourceRepo(func() repos.ResourceRepo { return store })
	})

	Describe("as a permission entry repo", func() {
		BehavesLikeAPermissionEntryRepo(
			func() repos.PermissionEntryRepo { return store },
			func() repos.ResourceRepo { return store },
		)
	})

	Describe("as a membership repo", func() {
		BehavesLikeAMembershipRepo(func() repos.MembershipRepo { return store })
	})

	Describe("as a sync repo", func() {
		BehavesLikeASyncRepo(func() repos.SyncRepo { return store })
	})
})
