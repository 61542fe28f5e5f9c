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

func BehavesLikeAMembershipRepo(subjectCreator func() repos.MembershipRepo) {
	var (
		subject repos.MembershipRepo

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

	Describe("#SetMembership", func() {
		It("adds the user to the group", func() {
			err := subject.SetMembership(ctx, logger, "alice", "editors")
			Expect(err).NotTo(HaveOccurred())

			groups, err := subject.ListGroups(ctx, logger, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(groups).To(ConsistOf("editors"))
		})

		It("fails when the membership already exists", func() {
			Expect(subject.SetMembership(ctx, logger, "alice", "editors")).To(Succeed())

			err := subject.SetMembership(ctx, logger, "alice", "editors")
			Expect(err).To(Equal(magpie.ErrMembershipAlreadyExists))
		})
	})

	Describe("#UnsetMembership", func() {
		It("removes the user from the group", func() {
			Expect(subject.SetMembership(ctx, logger, "alice", "editors")).To(Succeed())
			Expect(subject.SetMembership(ctx, logger, "alice", "admins")).To(Succeed())

			Expect(subject.UnsetMembership(ctx, logger, "alice", "editors")).To(Succeed())

			groups, err := subject.ListGroups(ctx, logger, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(groups).To(ConsistOf("admins"))
		})

		It("fails when the membership does not exist", func() {
			err := subject.UnsetMembership(ctx, logger, "alice", "editors")
			Expect(err).To(Equal(magpie.ErrMembershipNotFound))
		})
	})

	Describe("#ListGroups", func() {
		It("returns an empty list for an unknown user", func() {
			groups, err := subject.ListGroups(ctx, logger, "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(groups).To(BeEmpty())
		})

		It("returns only the user's own groups", func() {
			Expect(subject.SetMembership(ctx, logger, "alice", "editors")).To(Succeed())
			Expect(subject.SetMembership(ctx, logger, "bob", "admins")).To(Succeed())

			groups, err := subject.ListGroups(ctx, logger, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(groups).To(ConsistOf("editors"))
		})
	})
}
