package api_test

import (
	"context"
	"time"

	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/lager/lagertest"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/mishaschwartz/Magpie/pkg/api"
	"github.com/mishaschwartz/Magpie/pkg/api/repos"
	"github.com/mishaschwartz/Magpie/pkg/api/repos/inmemory"
	"github.com/mishaschwartz/Magpie/pkg/cache"
	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/logx/lagerx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
	"github.com/mishaschwartz/Magpie/pkg/metrics"
	"github.com/mishaschwartz/Magpie/pkg/syncer"
)

type staticFetcher struct {
	listings map[string][]magpie.RemoteResource
}

func (f *staticFetcher) Fetch(
	ctx context.Context,
	logger logx.Logger,
	serviceType string,
) ([]magpie.RemoteResource, error) {
	listing, ok := f.listings[serviceType]
	if !ok {
		return nil, magpie.ErrServiceNotFound
	}
	return listing, nil
}

var _ = Describe("Service", func() {
	var (
		subject *api.Service
		store   *inmemory.Store
		fetcher *staticFetcher

		ctx        context.Context
		cancelFunc context.CancelFunc
		logger     logx.Logger

		root, a, b magpie.Resource
	)

	BeforeEach(func() {
		store = inmemory.NewStore()
		fetcher = &staticFetcher{listings: make(map[string][]magpie.RemoteResource)}

		decisionCache := cache.New(cache.Config{
			DecisionsEnabled: true,
			DecisionTTL:      time.Hour,
			ListingsEnabled:  true,
			ListingTTL:       time.Hour,
		})
		engine := syncer.NewEngine(
			store,
			fetcher,
			decisionCache,
			clock.NewClock(),
			&metrics.NullStatter{},
			syncer.RetryPolicy{MaxRetries: 0, Interval: time.Millisecond},
		)
		subject = api.NewService(store, decisionCache, engine, &metrics.NullStatter{})

		ctx, cancelFunc = context.WithTimeout(context.Background(), 5*time.Second)
		logger = lagerx.NewLogger(lagertest.NewTestLogger("magpie-test"))

		var err error
		root, err = subject.CreateResource(ctx, logger, repos.CreateResourceQuery{
			ServiceType: "thredds",
			Name:        "thredds",
		})
		Expect(err).NotTo(HaveOccurred())

		a, err = subject.CreateResource(ctx, logger, repos.CreateResourceQuery{
			ServiceType: "thredds",
			Name:        "a",
			ParentID:    &root.ID,
		})
		Expect(err).NotTo(HaveOccurred())

		b, err = subject.CreateResource(ctx, logger, repos.CreateResourceQuery{
			ServiceType: "thredds",
			Name:        "b",
			ParentID:    &a.ID,
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

	Describe("#Resolve", func() {
		It("is undefined without entries", func() {
			decision, err := subject.Resolve(ctx, logger, "alice", b.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionUndefined))
		})

		It("resolves through group membership", func() {
			Expect(subject.SetMembership(ctx, logger, "alice", "editors")).To(Succeed())
			Expect(subject.CreateEntry(ctx, logger,
				entry(root.ID, magpie.GroupPrincipal("editors"), "read", magpie.AccessAllow, magpie.ScopeRecursive),
			)).To(Succeed())

			decision, err := subject.Resolve(ctx, logger, "alice", b.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionAllow))
		})

		It("lets a closer user allow beat a recursive group deny", func() {
			Expect(subject.SetMembership(ctx, logger, "alice", "editors")).To(Succeed())
			Expect(subject.CreateEntry(ctx, logger,
				entry(root.ID, magpie.GroupPrincipal("editors"), "read", magpie.AccessDeny, magpie.ScopeRecursive),
			)).To(Succeed())
			Expect(subject.CreateEntry(ctx, logger,
				entry(b.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeMatch),
			)).To(Succeed())

			decision, err := subject.Resolve(ctx, logger, "alice", b.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionAllow))

			decision, err = subject.Resolve(ctx, logger, "alice", a.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionDeny))
		})

		It("fails for an unknown resource", func() {
			_, err := subject.Resolve(ctx, logger, "alice", 54321, "read")
			Expect(err).To(Equal(magpie.ErrResourceNotFound))
		})

		It("never serves a stale decision after an entry mutation", func() {
			Expect(subject.CreateEntry(ctx, logger,
				entry(root.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeRecursive),
			)).To(Succeed())

			decision, err := subject.Resolve(ctx, logger, "alice", b.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionAllow))

			Expect(subject.CreateEntry(ctx, logger,
				entry(b.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessDeny, magpie.ScopeMatch),
			)).To(Succeed())

			decision, err = subject.Resolve(ctx, logger, "alice", b.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionDeny))
		})

		It("never serves a stale decision after an entry deletion", func() {
			allow := entry(b.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeMatch)
			Expect(subject.CreateEntry(ctx, logger, allow)).To(Succeed())

			decision, err := subject.Resolve(ctx, logger, "alice", b.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionAllow))

			Expect(subject.DeleteEntry(ctx, logger, allow)).To(Succeed())

			decision, err = subject.Resolve(ctx, logger, "alice", b.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionUndefined))
		})

		It("never serves a stale decision after a membership change", func() {
			Expect(subject.CreateEntry(ctx, logger,
				entry(root.ID, magpie.GroupPrincipal("editors"), "read", magpie.AccessAllow, magpie.ScopeRecursive),
			)).To(Succeed())

			decision, err := subject.Resolve(ctx, logger, "alice", b.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionUndefined))

			Expect(subject.SetMembership(ctx, logger, "alice", "editors")).To(Succeed())

			decision, err = subject.Resolve(ctx, logger, "alice", b.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionAllow))

			Expect(subject.UnsetMembership(ctx, logger, "alice", "editors")).To(Succeed())

			decision, err = subject.Resolve(ctx, logger, "alice", b.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionUndefined))
		})

		It("does not leak one user's decisions to another", func() {
			Expect(subject.CreateEntry(ctx, logger,
				entry(b.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeMatch),
			)).To(Succeed())

			decision, err := subject.Resolve(ctx, logger, "alice", b.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionAllow))

			decision, err = subject.Resolve(ctx, logger, "bob", b.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionUndefined))
		})
	})

	Describe("#ListEffectivePermissions", func() {
		It("renders the permission matrix for the resource", func() {
			Expect(subject.SetMembership(ctx, logger, "alice", "editors")).To(Succeed())
			Expect(subject.CreateEntry(ctx, logger,
				entry(root.ID, magpie.GroupPrincipal("editors"), "read", magpie.AccessAllow, magpie.ScopeRecursive),
			)).To(Succeed())
			Expect(subject.CreateEntry(ctx, logger,
				entry(b.ID, magpie.UserPrincipal("alice"), "write", magpie.AccessDeny, magpie.ScopeMatch),
			)).To(Succeed())

			matrix, err := subject.ListEffectivePermissions(ctx, logger, "alice", b.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(matrix).To(Equal(map[string]magpie.Decision{
				"read":  magpie.DecisionAllow,
				"write": magpie.DecisionDeny,
			}))
		})
	})

	Describe("#DeleteResource", func() {
		It("invalidates decisions cached under the deleted subtree", func() {
			Expect(subject.CreateEntry(ctx, logger,
				entry(a.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeRecursive),
			)).To(Succeed())

			decision, err := subject.Resolve(ctx, logger, "alice", b.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionAllow))

			Expect(subject.DeleteResource(ctx, logger, repos.DeleteResourceQuery{
				ResourceID: a.ID,
				Cascade:    true,
			})).To(Succeed())

			_, err = subject.Resolve(ctx, logger, "alice", b.ID, "read")
			Expect(err).To(Equal(magpie.ErrResourceNotFound))
		})
	})

	Describe("sync maintenance", func() {
		It("exposes the engine's sync pass", func() {
			fetcher.listings["thredds"] = []magpie.RemoteResource{
				{RemoteID: "r-1", Name: "datasets"},
			}

			state, err := subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Knows("r-1")).To(BeTrue())

			orphans, err := subject.Orphans(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())
			Expect(orphans).To(BeEmpty())
		})

		It("serves the remote listing cached by a sync pass", func() {
			fetcher.listings["thredds"] = []magpie.RemoteResource{
				{RemoteID: "r-1", Name: "datasets"},
			}
			_, err := subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())

			fetcher.listings["thredds"] = nil

			listing, err := subject.RemoteListing(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())
			Expect(listing).To(HaveLen(1))
			Expect(listing[0].RemoteID).To(Equal("r-1"))
		})

		It("resolves against resources created by a sync pass", func() {
			fetcher.listings["thredds"] = []magpie.RemoteResource{
				{RemoteID: "r-1", Name: "datasets"},
			}
			_, err := subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())

			resources, err := store.ListResources(ctx, logger, repos.ListResourcesQuery{ServiceType: "thredds"})
			Expect(err).NotTo(HaveOccurred())

			var created magpie.Resource
			for _, r := range resources {
				if r.Name == "datasets" {
					created = r
				}
			}
			Expect(created.ID).NotTo(BeZero())

			Expect(subject.CreateEntry(ctx, logger,
				entry(created.ID, magpie.UserPrincipal("alice"), "read", magpie.AccessAllow, magpie.ScopeMatch),
			)).To(Succeed())

			decision, err := subject.Resolve(ctx, logger, "alice", created.ID, "read")
			Expect(err).NotTo(HaveOccurred())
			Expect(decision).To(Equal(magpie.DecisionAllow))
		})
	})
})
