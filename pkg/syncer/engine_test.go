package syncer_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/clock/fakeclock"
	"code.cloudfoundry.org/lager/lagertest"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/mishaschwartz/Magpie/pkg/api/repos"
	"github.com/mishaschwartz/Magpie/pkg/api/repos/inmemory"
	"github.com/mishaschwartz/Magpie/pkg/cache"
	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/logx/lagerx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
	"github.com/mishaschwartz/Magpie/pkg/metrics"
	"github.com/mishaschwartz/Magpie/pkg/syncer"
)

type fakeFetcher struct {
	mu       sync.Mutex
	listings map[string][]magpie.RemoteResource
	errs     []error
	calls    int
	blocked  chan struct{}
}

func (f *fakeFetcher) Fetch(
	ctx context.Context,
	logger logx.Logger,
	serviceType string,
) ([]magpie.RemoteResource, error) {
	f.mu.Lock()
	f.calls++
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	blocked := f.blocked
	f.mu.Unlock()

	if blocked != nil {
		<-blocked
	}
	if err != nil {
		return nil, err
	}

	listing, ok := f.listings[serviceType]
	if !ok {
		return nil, magpie.ErrServiceNotFound
	}
	return listing, nil
}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var _ = Describe("Engine", func() {
	var (
		subject *syncer.Engine
		store   *inmemory.Store
		fetcher *fakeFetcher

		ctx        context.Context
		cancelFunc context.CancelFunc
		logger     logx.Logger

		root magpie.Resource
	)

	retry := syncer.RetryPolicy{
		MaxRetries: 2,
		Interval:   time.Millisecond,
	}

	BeforeEach(func() {
		store = inmemory.NewStore()
		fetcher = &fakeFetcher{listings: make(map[string][]magpie.RemoteResource)}

		subject = syncer.NewEngine(
			store,
			fetcher,
			cache.New(cache.DefaultConfig()),
			clock.NewClock(),
			&metrics.NullStatter{},
			retry,
		)

		ctx, cancelFunc = context.WithTimeout(context.Background(), 5*time.Second)
		logger = lagerx.NewLogger(lagertest.NewTestLogger("magpie-test"))

		var err error
		root, err = store.CreateResource(ctx, logger, repos.CreateResourceQuery{
			ServiceType: "thredds",
			Name:        "thredds",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cancelFunc()
	})

	listResources := func() map[string]magpie.Resource {
		resources, err := store.ListResources(ctx, logger, repos.ListResourcesQuery{ServiceType: "thredds"})
		Expect(err).NotTo(HaveOccurred())

		byName := make(map[string]magpie.Resource, len(resources))
		for _, r := range resources {
			byName[r.Name] = r
		}
		return byName
	}

	Describe("#TriggerSync", func() {
		It("creates remote-only resources under the service root", func() {
			fetcher.listings["thredds"] = []magpie.RemoteResource{
				{RemoteID: "r-1", Name: "datasets"},
				{RemoteID: "r-2", Name: "2023", ParentRemoteID: "r-1"},
			}

			state, err := subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Knows("r-1")).To(BeTrue())
			Expect(state.Knows("r-2")).To(BeTrue())

			byName := listResources()
			Expect(byName).To(HaveLen(3))

			datasets := byName["datasets"]
			Expect(*datasets.ParentID).To(Equal(root.ID))
			Expect(*datasets.RemoteID).To(Equal("r-1"))

			year := byName["2023"]
			Expect(*year.ParentID).To(Equal(datasets.ID))
		})

		It("never hangs a descriptor with an unknown parent off the service root", func() {
			fetcher.listings["thredds"] = []magpie.RemoteResource{
				{RemoteID: "r-1", Name: "dangling", ParentRemoteID: "ghost"},
				{RemoteID: "r-2", Name: "datasets"},
			}

			_, err := subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())

			byName := listResources()
			Expect(byName).To(HaveKey("datasets"))
			Expect(byName).NotTo(HaveKey("dangling"))
		})

		It("renames resources the remote side renamed", func() {
			stale := "r-1"
			_, err := store.CreateResource(ctx, logger, repos.CreateResourceQuery{
				ServiceType: "thredds",
				Name:        "old-name",
				ParentID:    &root.ID,
				RemoteID:    &stale,
			})
			Expect(err).NotTo(HaveOccurred())

			fetcher.listings["thredds"] = []magpie.RemoteResource{
				{RemoteID: "r-1", Name: "new-name"},
			}

			_, err = subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())

			byName := listResources()
			Expect(byName).To(HaveKey("new-name"))
			Expect(byName).NotTo(HaveKey("old-name"))
		})

		It("stores the sync state wholesale on success", func() {
			fetcher.listings["thredds"] = []magpie.RemoteResource{
				{RemoteID: "r-1", Name: "datasets"},
			}
			_, err := subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())

			fetcher.listings["thredds"] = []magpie.RemoteResource{
				{RemoteID: "r-1", Name: "datasets"},
				{RemoteID: "r-2", Name: "more"},
			}
			_, err = subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())

			state, err := store.GetSyncState(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Knows("r-2")).To(BeTrue())
		})

		It("retries transient fetch failures", func() {
			fetcher.errs = []error{errors.New("connection reset")}
			fetcher.listings["thredds"] = []magpie.RemoteResource{
				{RemoteID: "r-1", Name: "datasets"},
			}

			_, err := subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())
			Expect(fetcher.fetchCount()).To(Equal(2))
		})

		It("does not retry an unknown service", func() {
			_, err := subject.TriggerSync(ctx, logger, "no-such-service")
			Expect(err).To(Equal(magpie.ErrServiceNotFound))
			Expect(fetcher.fetchCount()).To(Equal(1))
		})

		It("leaves the tree and sync state untouched when fetching fails", func() {
			fetcher.errs = []error{
				errors.New("connection reset"),
				errors.New("connection reset"),
				errors.New("connection reset"),
			}
			fetcher.listings["thredds"] = []magpie.RemoteResource{
				{RemoteID: "r-1", Name: "datasets"},
			}

			_, err := subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).To(HaveOccurred())

			Expect(listResources()).To(HaveLen(1))
			_, err = store.GetSyncState(ctx, logger, "thredds")
			Expect(err).To(Equal(magpie.ErrSyncStateNotFound))
		})

		It("refuses concurrent passes for the same service", func() {
			blocked := make(chan struct{})
			fetcher.blocked = blocked
			fetcher.listings["thredds"] = []magpie.RemoteResource{}

			done := make(chan error, 1)
			go func() {
				_, err := subject.TriggerSync(ctx, logger, "thredds")
				done <- err
			}()

			Eventually(func() syncer.State {
				return subject.ServiceState("thredds")
			}).ShouldNot(Equal(syncer.StateIdle))

			_, err := subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).To(Equal(magpie.ErrSyncInProgress))

			close(blocked)
			Eventually(done).Should(Receive(BeNil()))
			Expect(subject.ServiceState("thredds")).To(Equal(syncer.StateIdle))
		})
	})

	Describe("#Listing", func() {
		BeforeEach(func() {
			fetcher.listings["thredds"] = []magpie.RemoteResource{
				{RemoteID: "r-1", Name: "datasets"},
			}
		})

		It("fetches once and serves later lookups from the cache", func() {
			listing, err := subject.Listing(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())
			Expect(listing).To(HaveLen(1))
			Expect(listing[0].RemoteID).To(Equal("r-1"))

			_, err = subject.Listing(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())
			Expect(fetcher.fetchCount()).To(Equal(1))
		})

		It("serves the listing a sync pass already fetched", func() {
			_, err := subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())

			listing, err := subject.Listing(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())
			Expect(listing).To(HaveLen(1))
			Expect(fetcher.fetchCount()).To(Equal(1))
		})

		It("fails for an unknown service without retrying", func() {
			_, err := subject.Listing(ctx, logger, "no-such-service")
			Expect(err).To(Equal(magpie.ErrServiceNotFound))
			Expect(fetcher.fetchCount()).To(Equal(1))
		})
	})

	Describe("#Orphans", func() {
		It("lists resources the last pass no longer saw", func() {
			gone := "r-gone"
			orphan, err := store.CreateResource(ctx, logger, repos.CreateResourceQuery{
				ServiceType: "thredds",
				Name:        "stale",
				ParentID:    &root.ID,
				RemoteID:    &gone,
			})
			Expect(err).NotTo(HaveOccurred())

			fetcher.listings["thredds"] = []magpie.RemoteResource{}
			_, err = subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())

			orphans, err := subject.Orphans(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())
			Expect(orphans).To(HaveLen(1))
			Expect(orphans[0].ID).To(Equal(orphan.ID))
		})

		It("fails for a service that has never synced", func() {
			_, err := subject.Orphans(ctx, logger, "thredds")
			Expect(err).To(Equal(magpie.ErrSyncStateNotFound))
		})
	})

	Describe("#Clean", func() {
		var orphan magpie.Resource

		BeforeEach(func() {
			gone := "r-gone"
			var err error
			orphan, err = store.CreateResource(ctx, logger, repos.CreateResourceQuery{
				ServiceType: "thredds",
				Name:        "stale",
				ParentID:    &root.ID,
				RemoteID:    &gone,
			})
			Expect(err).NotTo(HaveOccurred())

			fetcher.listings["thredds"] = []magpie.RemoteResource{}
			_, err = subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())
		})

		It("cascades the deletion of a flagged orphan", func() {
			nested, err := store.CreateResource(ctx, logger, repos.CreateResourceQuery{
				ServiceType: "thredds",
				Name:        "nested",
				ParentID:    &orphan.ID,
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(subject.Clean(ctx, logger, orphan.ID)).To(Succeed())

			_, err = store.GetResource(ctx, logger, orphan.ID)
			Expect(err).To(Equal(magpie.ErrResourceNotFound))
			_, err = store.GetResource(ctx, logger, nested.ID)
			Expect(err).To(Equal(magpie.ErrResourceNotFound))
		})

		It("refuses resources the remote side still knows", func() {
			known := "r-1"
			kept, err := store.CreateResource(ctx, logger, repos.CreateResourceQuery{
				ServiceType: "thredds",
				Name:        "kept",
				ParentID:    &root.ID,
				RemoteID:    &known,
			})
			Expect(err).NotTo(HaveOccurred())

			fetcher.listings["thredds"] = []magpie.RemoteResource{
				{RemoteID: "r-1", Name: "kept"},
			}
			_, err = subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())

			Expect(subject.Clean(ctx, logger, kept.ID)).To(Equal(magpie.ErrNotOrphan))
		})

		It("refuses resources that were never matched remotely", func() {
			Expect(subject.Clean(ctx, logger, root.ID)).To(Equal(magpie.ErrNotOrphan))
		})
	})

	Describe("#CleanAll", func() {
		It("tolerates orphans already removed by an earlier cascade", func() {
			goneParent := "r-gone-parent"
			parent, err := store.CreateResource(ctx, logger, repos.CreateResourceQuery{
				ServiceType: "thredds",
				Name:        "stale-parent",
				ParentID:    &root.ID,
				RemoteID:    &goneParent,
			})
			Expect(err).NotTo(HaveOccurred())

			goneChild := "r-gone-child"
			child, err := store.CreateResource(ctx, logger, repos.CreateResourceQuery{
				ServiceType: "thredds",
				Name:        "stale-child",
				ParentID:    &parent.ID,
				RemoteID:    &goneChild,
			})
			Expect(err).NotTo(HaveOccurred())

			fetcher.listings["thredds"] = []magpie.RemoteResource{}
			_, err = subject.TriggerSync(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())

			Expect(subject.CleanAll(ctx, logger, []int64{parent.ID, child.ID})).To(Succeed())

			Expect(listResources()).To(HaveLen(1))
		})

		It("reports failures without giving up on the rest", func() {
			err := subject.CleanAll(ctx, logger, []int64{root.ID})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("#Run", func() {
		It("triggers a pass on every tick until the context is done", func() {
			fc := fakeclock.NewFakeClock(time.Now())
			ticking := syncer.NewEngine(
				store,
				fetcher,
				cache.New(cache.DefaultConfig()),
				fc,
				&metrics.NullStatter{},
				retry,
			)
			fetcher.listings["thredds"] = []magpie.RemoteResource{}

			runCtx, cancelRun := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() {
				done <- ticking.Run(runCtx, logger, time.Minute, []string{"thredds"})
			}()

			fc.WaitForWatcherAndIncrement(time.Minute)
			Eventually(fetcher.fetchCount).Should(Equal(1))

			fc.WaitForWatcherAndIncrement(time.Minute)
			Eventually(fetcher.fetchCount).Should(Equal(2))

			cancelRun()
			Eventually(done).Should(Receive(MatchError(context.Canceled)))
		})
	})
})
