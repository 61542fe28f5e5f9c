package syncer

import "github.com/mishaschwartz/Magpie/pkg/magpie"

type ResourceUpdate struct {
	ResourceID int64
	Name       string
}

// Diff is the outcome of comparing a local service tree against the remote
// listing. ToCreate is ordered parents before children so it can be applied
// front to back.
type Diff struct {
	ToCreate []magpie.RemoteResource
	ToUpdate []ResourceUpdate
	Orphans  []magpie.Resource
}

func (d Diff) Empty() bool {
	return len(d.ToCreate) == 0 && len(d.ToUpdate) == 0 && len(d.Orphans) == 0
}

// ComputeDiff matches local resources to remote descriptors by remote id.
// Remote-only descriptors are queued for creation, matched resources with a
// changed name for update, and local resources holding a remote id that the
// listing no longer mentions are flagged as orphans. Nothing is deleted
// here.
func ComputeDiff(local []magpie.Resource, remote []magpie.RemoteResource) Diff {
	localByRemoteID := make(map[string]magpie.Resource)
	for _, r := range local {
		if r.RemoteID != nil {
			localByRemoteID[*r.RemoteID] = r
		}
	}

	remoteIDs := make(map[string]struct{}, len(remote))
	for _, d := range remote {
		remoteIDs[d.RemoteID] = struct{}{}
	}

	var diff Diff
	missing := make(map[string]magpie.RemoteResource)
	for _, d := range remote {
		existing, ok := localByRemoteID[d.RemoteID]
		if !ok {
			missing[d.RemoteID] = d
			continue
		}
		if existing.Name != d.Name {
			diff.ToUpdate = append(diff.ToUpdate, ResourceUpdate{
				ResourceID: existing.ID,
				Name:       d.Name,
			})
		}
	}

	// Emit creations parents-first: a descriptor is ready once its parent
	// is attached to the root, matched locally, or already emitted. A
	// descriptor whose parent is known neither remotely nor locally is
	// skipped for the pass, along with everything under it; hanging it off
	// the service root would misplace it in the mirrored hierarchy.
	skipped := make(map[string]struct{})
	for len(missing) > 0 {
		progress := false
		for _, d := range remote {
			pending, ok := missing[d.RemoteID]
			if !ok {
				continue
			}
			if parent := pending.ParentRemoteID; parent != "" {
				if _, ok := skipped[parent]; ok {
					skipped[pending.RemoteID] = struct{}{}
					delete(missing, pending.RemoteID)
					progress = true
					continue
				}
				if _, ok := missing[parent]; ok {
					continue
				}
				_, knownRemotely := remoteIDs[parent]
				_, knownLocally := localByRemoteID[parent]
				if !knownRemotely && !knownLocally {
					skipped[pending.RemoteID] = struct{}{}
					delete(missing, pending.RemoteID)
					progress = true
					continue
				}
			}
			diff.ToCreate = append(diff.ToCreate, pending)
			delete(missing, pending.RemoteID)
			progress = true
		}
		if !progress {
			// Remaining descriptors form a parent cycle; skip them
			// rather than loop forever.
			break
		}
	}

	for _, r := range local {
		if r.RemoteID == nil {
			continue
		}
		if _, ok := remoteIDs[*r.RemoteID]; !ok {
			diff.Orphans = append(diff.Orphans, r)
		}
	}

	return diff
}
