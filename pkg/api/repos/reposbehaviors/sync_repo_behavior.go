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

func BehavesLikeASyncRepo(subjectCreator func() repos.SyncRepo) {
	var (
		subject repos.SyncRepo

		ctx        context.Context
		cancelFunc context.CancelFunc
		logger     logx.Logger
	)

	BeforeEach(func() {
		subject = subjectCreator()

		ctx, cancelFunc = context.WithTimeout(context.Background(), 1*time.Second)
		logger = lagerx.NewLogger(lagertest.NewTestLogger("magpie-test"))
	})

	AfterEach(func() {
		cancelFunc()
	})

	Describe("#GetSyncState", func() {
		It("fails for a service that has never synced", func() {
			_, err := subject.GetSyncState(ctx, logger, "thredds")
			Expect(err).To(Equal(magpie.ErrSyncStateNotFound))
		})
	})

	Describe("#PutSyncState", func() {
		It("stores the state for later retrieval", func() {
			syncedAt := time.Date(2023, time.March, 14, 9, 26, 53, 0, time.UTC)
			err := subject.PutSyncState(ctx, logger, magpie.SyncState{
				ServiceType: "thredds",
				LastSyncAt:  syncedAt,
				KnownRemoteIDs: map[string]struct{}{
					"r-1": {},
					"r-2": {},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			state, err := subject.GetSyncState(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())
			Expect(state.ServiceType).To(Equal("thredds"))
			Expect(state.LastSyncAt).To(BeTemporally("==", syncedAt))
			Expect(state.Knows("r-1")).To(BeTrue())
			Expect(state.Knows("r-2")).To(BeTrue())
			Expect(state.Knows("r-3")).To(BeFalse())
		})

		It("replaces the previous state wholesale", func() {
			first := magpie.SyncState{
				ServiceType:    "thredds",
				LastSyncAt:     time.Date(2023, time.March, 14, 9, 0, 0, 0, time.UTC),
				KnownRemoteIDs: map[string]struct{}{"r-1": {}},
			}
			Expect(subject.PutSyncState(ctx, logger, first)).To(Succeed())

			second := magpie.SyncState{
				ServiceType:    "thredds",
				LastSyncAt:     time.Date(2023, time.March, 14, 10, 0, 0, 0, time.UTC),
				KnownRemoteIDs: map[string]struct{}{"r-2": {}},
			}
			Expect(subject.PutSyncState(ctx, logger, second)).To(Succeed())

			state, err := subject.GetSyncState(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())
			Expect(state.LastSyncAt).To(BeTemporally("==", second.LastSyncAt))
			Expect(state.Knows("r-1")).To(BeFalse())
			Expect(state.Knows("r-2")).To(BeTrue())
		})

		It("keeps states of different services apart", func() {
			Expect(subject.PutSyncState(ctx, logger, magpie.SyncState{
				ServiceType:    "thredds",
				LastSyncAt:     time.Now().UTC(),
				KnownRemoteIDs: map[string]struct{}{"t-1": {}},
			})).To(Succeed())
			Expect(subject.PutSyncState(ctx, logger, magpie.SyncState{
				ServiceType:    "geoserver",
				LastSyncAt:     time.Now().UTC(),
				KnownRemoteIDs: map[string]struct{}{"g-1": {}},
			})).To(Succeed())

			state, err := subject.GetSyncState(ctx, logger, "thredds")
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Knows("t-1")).To(BeTrue())
			Expect(state.Knows("g-1")).To(BeFalse())
		})
	})
}
