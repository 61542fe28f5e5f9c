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

func BehavesLikeAResourceRepo(subjectCreator func() repos.ResourceRepo) {
	var (
		subject repos.ResourceRepo

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

	createRoot := func(serviceType string) magpie.Resource {
		root, err := subject.CreateResource(ctx, logger, repos.CreateResourceQuery{
			ServiceType: serviceType,
			Name:        serviceType,
		})
		Expect(err).NotTo(HaveOccurred())
		return root
	}

	createChild := func(parent magpie.Resource, name string) magpie.Resource {
		child, err := subject.CreateResource(ctx, logger, repos.CreateResourceQuery{
			ServiceType: parent.ServiceType,
			Name:        name,
			ParentID:    &parent.ID,
		})
		Expect(err).NotTo(HaveOccurred())
		return child
	}

	Describe("#CreateResource", func() {
		It("creates a service root when no parent is given", func() {
			root := createRoot("thredds")

			Expect(root.IsRoot()).To(BeTrue())
			Expect(root.ServiceType).To(Equal("thredds"))
		})

		It("refuses a second root for the same service", func() {
			createRoot("thredds")

			_, err := subject.CreateResource(ctx, logger, repos.CreateResourceQuery{
				ServiceType: "thredds",
				Name:        "another-root",
			})
			Expect(err).To(Equal(magpie.ErrServiceRootExists))
		})

		It("nests resources under their parent", func() {
			root := createRoot("thredds")
			child := createChild(root, "datasets")

			Expect(child.ParentID).NotTo(BeNil())
			Expect(*child.ParentID).To(Equal(root.ID))
		})

		It("fails when the parent does not exist", func() {
			missing := int64(12345)
			_, err := subject.CreateResource(ctx, logger, repos.CreateResourceQuery{
				ServiceType: "thredds",
				Name:        "dangling",
				ParentID:    &missing,
			})
			Expect(err).To(Equal(magpie.ErrInvalidParent))
		})

		It("fails when the parent belongs to a different service", func() {
			threddsRoot := createRoot("thredds")
			createRoot("geoserver")

			_, err := subject.CreateResource(ctx, logger, repos.CreateResourceQuery{
				ServiceType: "geoserver",
				Name:        "crossed",
				ParentID:    &threddsRoot.ID,
			})
			Expect(err).To(Equal(magpie.ErrInvalidParent))
		})
	})

	Describe("#GetPath", func() {
		It("returns the resources from the root down to the target", func() {
			root := createRoot("thredds")
			a := createChild(root, "a")
			b := createChild(a, "b")

			path, err := subject.GetPath(ctx, logger, b.ID)
			Expect(err).NotTo(HaveOccurred())

			Expect(path).To(HaveLen(3))
			Expect(path[0].ID).To(Equal(root.ID))
			Expect(path[1].ID).To(Equal(a.ID))
			Expect(path[2].ID).To(Equal(b.ID))
		})

		It("returns a single-element path for a root", func() {
			root := createRoot("thredds")

			path, err := subject.GetPath(ctx, logger, root.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(HaveLen(1))
		})

		It("fails for an unknown resource", func() {
			_, err := subject.GetPath(ctx, logger, 54321)
			Expect(err).To(Equal(magpie.ErrResourceNotFound))
		})
	})

	Describe("#UpdateResource", func() {
		It("renames the resource", func() {
			root := createRoot("thredds")
			child := createChild(root, "old-name")

			err := subject.UpdateResource(ctx, logger, repos.UpdateResourceQuery{
				ResourceID: child.ID,
				Name:       "new-name",
			})
			Expect(err).NotTo(HaveOccurred())

			updated, err := subject.GetResource(ctx, logger, child.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("new-name"))
		})

		It("fails for an unknown resource", func() {
			err := subject.UpdateResource(ctx, logger, repos.UpdateResourceQuery{
				ResourceID: 54321,
				Name:       "whatever",
			})
			Expect(err).To(Equal(magpie.ErrResourceNotFound))
		})
	})

	Describe("#DeleteResource", func() {
		It("deletes a leaf resource", func() {
			root := createRoot("thredds")
			leaf := createChild(root, "leaf")

			deleted, err := subject.DeleteResource(ctx, logger, repos.DeleteResourceQuery{
				ResourceID: leaf.ID,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(ConsistOf(leaf.ID))

			_, err = subject.GetResource(ctx, logger, leaf.ID)
			Expect(err).To(Equal(magpie.ErrResourceNotFound))
		})

		It("refuses to delete a resource with children unless cascading", func() {
			root := createRoot("thredds")
			parent := createChild(root, "parent")
			createChild(parent, "child")

			_, err := subject.DeleteResource(ctx, logger, repos.DeleteResourceQuery{
				ResourceID: parent.ID,
			})
			Expect(err).To(Equal(magpie.ErrHasChildren))
		})

		It("cascades over the whole subtree", func() {
			root := createRoot("thredds")
			parent := createChild(root, "parent")
			child := createChild(parent, "child")
			grandchild := createChild(child, "grandchild")

			deleted, err := subject.DeleteResource(ctx, logger, repos.DeleteResourceQuery{
				ResourceID: parent.ID,
				Cascade:    true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(ConsistOf(parent.ID, child.ID, grandchild.ID))

			for _, id := range deleted {
				_, err = subject.GetResource(ctx, logger, id)
				Expect(err).To(Equal(magpie.ErrResourceNotFound))
			}

			_, err = subject.GetResource(ctx, logger, root.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("fails for an unknown resource", func() {
			_, err := subject.DeleteResource(ctx, logger, repos.DeleteResourceQuery{
				ResourceID: 54321,
			})
			Expect(err).To(Equal(magpie.ErrResourceNotFound))
		})
	})

	Describe("#ListResources", func() {
		It("lists only the service's resources", func() {
			threddsRoot := createRoot("thredds")
			threddsChild := createChild(threddsRoot, "datasets")
			geoserverRoot := createRoot("geoserver")

			resources, err := subject.ListResources(ctx, logger, repos.ListResourcesQuery{
				ServiceType: "thredds",
			})
			Expect(err).NotTo(HaveOccurred())

			var ids []int64
			for _, r := range resources {
				ids = append(ids, r.ID)
			}
			Expect(ids).To(ConsistOf(threddsRoot.ID, threddsChild.ID))
			Expect(ids).NotTo(ContainElement(geoserverRoot.ID))
		})
	})
}
