package syncer_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/mishaschwartz/Magpie/pkg/magpie"
	"github.com/mishaschwartz/Magpie/pkg/syncer"
)

var _ = Describe("ComputeDiff", func() {
	remoteID := func(id string) *string { return &id }

	It("is empty when local and remote agree", func() {
		rootID := int64(1)
		local := []magpie.Resource{
			{ID: rootID, Name: "thredds", ServiceType: "thredds"},
			{ID: 2, Name: "datasets", ServiceType: "thredds", ParentID: &rootID, RemoteID: remoteID("r-1")},
		}
		remote := []magpie.RemoteResource{
			{RemoteID: "r-1", Name: "datasets"},
		}

		Expect(syncer.ComputeDiff(local, remote).Empty()).To(BeTrue())
	})

	It("queues remote-only descriptors for creation", func() {
		remote := []magpie.RemoteResource{
			{RemoteID: "r-1", Name: "datasets"},
		}

		diff := syncer.ComputeDiff(nil, remote)
		Expect(diff.ToCreate).To(ConsistOf(remote[0]))
		Expect(diff.ToUpdate).To(BeEmpty())
		Expect(diff.Orphans).To(BeEmpty())
	})

	It("orders creations parents before children", func() {
		remote := []magpie.RemoteResource{
			{RemoteID: "r-3", Name: "grandchild", ParentRemoteID: "r-2"},
			{RemoteID: "r-2", Name: "child", ParentRemoteID: "r-1"},
			{RemoteID: "r-1", Name: "parent"},
		}

		diff := syncer.ComputeDiff(nil, remote)
		Expect(diff.ToCreate).To(HaveLen(3))
		Expect(diff.ToCreate[0].RemoteID).To(Equal("r-1"))
		Expect(diff.ToCreate[1].RemoteID).To(Equal("r-2"))
		Expect(diff.ToCreate[2].RemoteID).To(Equal("r-3"))
	})

	It("treats a descriptor whose parent already exists locally as ready", func() {
		rootID := int64(1)
		local := []magpie.Resource{
			{ID: 2, Name: "datasets", ServiceType: "thredds", ParentID: &rootID, RemoteID: remoteID("r-1")},
		}
		remote := []magpie.RemoteResource{
			{RemoteID: "r-1", Name: "datasets"},
			{RemoteID: "r-2", Name: "2023", ParentRemoteID: "r-1"},
		}

		diff := syncer.ComputeDiff(local, remote)
		Expect(diff.ToCreate).To(HaveLen(1))
		Expect(diff.ToCreate[0].RemoteID).To(Equal("r-2"))
	})

	It("skips descriptors whose parent is known neither remotely nor locally", func() {
		remote := []magpie.RemoteResource{
			{RemoteID: "r-1", Name: "dangling", ParentRemoteID: "ghost"},
			{RemoteID: "r-2", Name: "ok"},
		}

		diff := syncer.ComputeDiff(nil, remote)
		Expect(diff.ToCreate).To(HaveLen(1))
		Expect(diff.ToCreate[0].RemoteID).To(Equal("r-2"))
	})

	It("skips everything under a descriptor with an unknown parent", func() {
		remote := []magpie.RemoteResource{
			{RemoteID: "r-2", Name: "child-of-dangling", ParentRemoteID: "r-1"},
			{RemoteID: "r-1", Name: "dangling", ParentRemoteID: "ghost"},
			{RemoteID: "r-3", Name: "grandchild-of-dangling", ParentRemoteID: "r-2"},
		}

		Expect(syncer.ComputeDiff(nil, remote).ToCreate).To(BeEmpty())
	})

	It("does not skip a descriptor whose parent is a local orphan", func() {
		orphaned := "r-old"
		local := []magpie.Resource{
			{ID: 2, Name: "old", ServiceType: "thredds", RemoteID: &orphaned},
		}
		remote := []magpie.RemoteResource{
			{RemoteID: "r-new", Name: "new", ParentRemoteID: "r-old"},
		}

		diff := syncer.ComputeDiff(local, remote)
		Expect(diff.ToCreate).To(HaveLen(1))
		Expect(diff.ToCreate[0].RemoteID).To(Equal("r-new"))
		Expect(diff.Orphans).To(HaveLen(1))
	})

	It("skips descriptors forming a parent cycle", func() {
		remote := []magpie.RemoteResource{
			{RemoteID: "r-1", Name: "a", ParentRemoteID: "r-2"},
			{RemoteID: "r-2", Name: "b", ParentRemoteID: "r-1"},
			{RemoteID: "r-3", Name: "ok"},
		}

		diff := syncer.ComputeDiff(nil, remote)
		Expect(diff.ToCreate).To(HaveLen(1))
		Expect(diff.ToCreate[0].RemoteID).To(Equal("r-3"))
	})

	It("queues renamed resources for update", func() {
		local := []magpie.Resource{
			{ID: 2, Name: "old-name", ServiceType: "thredds", RemoteID: remoteID("r-1")},
		}
		remote := []magpie.RemoteResource{
			{RemoteID: "r-1", Name: "new-name"},
		}

		diff := syncer.ComputeDiff(local, remote)
		Expect(diff.ToCreate).To(BeEmpty())
		Expect(diff.ToUpdate).To(ConsistOf(syncer.ResourceUpdate{ResourceID: 2, Name: "new-name"}))
	})

	It("flags local resources the listing no longer mentions", func() {
		local := []magpie.Resource{
			{ID: 2, Name: "stale", ServiceType: "thredds", RemoteID: remoteID("r-gone")},
		}

		diff := syncer.ComputeDiff(local, nil)
		Expect(diff.Orphans).To(HaveLen(1))
		Expect(diff.Orphans[0].ID).To(Equal(int64(2)))
	})

	It("never flags resources without a remote id", func() {
		local := []magpie.Resource{
			{ID: 1, Name: "thredds", ServiceType: "thredds"},
		}

		diff := syncer.ComputeDiff(local, nil)
		Expect(diff.Orphans).To(BeEmpty())
	})
})
