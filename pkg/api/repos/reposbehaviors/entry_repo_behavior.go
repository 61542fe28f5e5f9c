package reposbehaviors

import (
	"context"
	"time"

	"code.cloudfoundry.org/lager/lagertest"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/mishaschwartz/Magpie/pkg/api/repos"
	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/logx/lagerx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
)

func BehavesLikeAPermissionEntryRepo(
	subjectCreator func() repos.PermissionEntryRepo,
	resourceRepoCreator func() repos.ResourceRepo,
) {
	var (
		subject      repos.PermissionEntryRepo
		resourceRepo repos.ResourceRepo

		ctx        context.Context
		cancelFunc context.CancelFunc
		logger     logx.Logger

		root  magpie.Resource
		child magpie.Resource
	)

	BeforeEach(func() {
		subject = subjectCreator()
		resourceRepo = resourceRepoCreator()

		ctx, cancelFunc = context.WithTimeout(context.Background(), 1*time.Second)
		logger = lagerx.NewLogger(lagertest.NewTestLogger("magpie-test"))

		var err error
		root, err = resourceRepo.CreateResource(ctx, logger, repos.CreateResourceQuery{
			ServiceType: "thredds",
			Name:        "thredds",
		})
		Expect(err).NotTo(HaveOccurred())

		child, err = resourceRepo.CreateResource(ctx, logger, repos.CreateResourceQuery{
			ServiceType: "thredds",
			Name:        "datasets",
			ParentID:    &root.ID,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cancelFunc()
	})

	entry := func(resourceID int64, principal magpie.Principal, action string, access magpie.Access, scope magpie.Scope) magpie.PermissionEntry {
		return magpie.PermissionEntry{
			ResourceID: resourceID,
			Principal:  principal,
			Action:     action,
			Access:     access,
			Scope:      scope,
		}
	}

	Describe("#CreateEntry", func() {
		It("stores the entry", func() {
			e := entry(child.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeMatch)
			err := subject.CreateEntry(ctx, logger, e)
			Expect(err).NotTo(HaveOccurred())

			entries, err := subject.ListEntries(ctx, logger, repos.ListEntriesQuery{
				ResourceIDs: []int64{child.ID},
				Principals:  []magpie.Principal{magpie.UserPrincipal("alice")},
				Action:      "read",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(ConsistOf(e))
		})

		It("fails when the same entry already exists", func() {
			e := entry(child.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeMatch)
			Expect(subject.CreateEntry(ctx, logger, e)).To(Succeed())

			err := subject.CreateEntry(ctx, logger, e)
			Expect(err).To(Equal(magpie.ErrEntryAlreadyExists))
		})

		It("treats entries differing only in access or scope as distinct", func() {
			e := entry(child.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeMatch)
			Expect(subject.CreateEntry(ctx, logger, e)).To(Succeed())

			e.Access = magpie.AccessDeny
			Expect(subject.CreateEntry(ctx, logger, e)).To(Succeed())

			e.Scope = magpie.ScopeRecursive
			Expect(subject.CreateEntry(ctx, logger, e)).To(Succeed())
		})
	})

	Describe("#DeleteEntry", func() {
		It("removes the entry", func() {
			e := entry(child.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeMatch)
			Expect(subject.CreateEntry(ctx, logger, e)).To(Succeed())

			Expect(subject.DeleteEntry(ctx, logger, e)).To(Succeed())

			entries, err := subject.ListEntries(ctx, logger, repos.ListEntriesQuery{
				ResourceIDs: []int64{child.ID},
				Principals:  []magpie.Principal{magpie.UserPrincipal("alice")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("fails when the entry does not exist", func() {
			e := entry(child.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeMatch)
			err := subject.DeleteEntry(ctx, logger, e)
			Expect(err).To(Equal(magpie.ErrEntryNotFound))
		})
	})

	Describe("#ListEntries", func() {
		var (
			allowRead magpie.PermissionEntry
			denyWrite magpie.PermissionEntry
			groupRead magpie.PermissionEntry
		)

		BeforeEach(func() {
			allowRead = entry(child.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeMatch)
			denyWrite = entry(child.ID, magpie.UserPrincipal("alice"), "write", magpie.AccessDeny, magpie.ScopeRecursive)
			groupRead = entry(root.ID, magpie.GroupPrincipal("editors"), "read", magpie.AccessAllow, magpie.ScopeRecursive)

			Expect(subject.CreateEntry(ctx, logger, allowRead)).To(Succeed())
			Expect(subject.CreateEntry(ctx, logger, denyWrite)).To(Succeed())
			Expect(subject.CreateEntry(ctx, logger, groupRead)).To(Succeed())
		})

		It("matches any of the given resources and principals", func() {
			entries, err := subject.ListEntries(ctx, logger, repos.ListEntriesQuery{
				ResourceIDs: []int64{root.ID, child.ID},
				Principals: []magpie.Principal{
					magpie.UserPrincipal("alice"),
					magpie.GroupPrincipal("editors"),
				},
				Action: "read",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(ConsistOf(allowRead, groupRead))
		})

		It("matches every action when none is given", func() {
			entries, err := subject.ListEntries(ctx, logger, repos.ListEntriesQuery{
				ResourceIDs: []int64{child.ID},
				Principals:  []magpie.Principal{magpie.UserPrincipal("alice")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(ConsistOf(allowRead, denyWrite))
		})

		It("does not conflate users and groups sharing a name", func() {
			sameName := entry(child.ID, magpie.GroupPrincipal("alice"), "read", magpie.AccessDeny, magpie.ScopeMatch)
			Expect(subject.CreateEntry(ctx, logger, sameName)).To(Succeed())

			entries, err := subject.ListEntries(ctx, logger, repos.ListEntriesQuery{
				ResourceIDs: []int64{child.ID},
				Principals:  []magpie.Principal{magpie.UserPrincipal("alice")},
				Action:      "read",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(ConsistOf(allowRead))
		})

		It("returns nothing for empty inputs", func() {
			entries, err := subject.ListEntries(ctx, logger, repos.ListEntriesQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})
	})

	Describe("cascading resource deletion", func() {
		It("removes the entries attached to the removed subtree", func() {
			grandchild, err := resourceRepo.CreateResource(ctx, logger, repos.CreateResourceQuery{
				ServiceType: "thredds",
				Name:        "2023",
				ParentID:    &child.ID,
			})
			Expect(err).NotTo(HaveOccurred())

			doomed := entry(grandchild.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeMatch)
			kept := entry(root.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeMatch)
			Expect(subject.CreateEntry(ctx, logger, doomed)).To(Succeed())
			Expect(subject.CreateEntry(ctx, logger, kept)).To(Succeed())

			_, err = resourceRepo.DeleteResource(ctx, logger, repos.DeleteResourceQuery{
				ResourceID: child.ID,
				Cascade:    true,
			})
			Expect(err).NotTo(HaveOccurred())

			entries, err := subject.ListEntries(ctx, logger, repos.ListEntriesQuery{
				ResourceIDs: []int64{root.ID, child.ID, grandchild.ID},
				Principals:  []magpie.Principal{magpie.UserPrincipal("alice")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(ConsistOf(kept))
		})
	})

	Describe("#DeleteEntriesForResources", func() {
		It("removes every entry attached to the given resources", func() {
			onChild := entry(child.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeMatch)
			onRoot := entry(root.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeMatch)
			Expect(subject.CreateEntry(ctx, logger, onChild)).To(Succeed())
			Expect(subject.CreateEntry(ctx, logger, onRoot)).To(Succeed())

			Expect(subject.DeleteEntriesForResources(ctx, logger, []int64{child.ID})).To(Succeed())

			entries, err := subject.ListEntries(ctx, logger, repos.ListEntriesQuery{
				ResourceIDs: []int64{root.ID, child.ID},
				Principals:  []magpie.Principal{magpie.UserPrincipal("alice")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(ConsistOf(onRoot))
		})
	})
}
