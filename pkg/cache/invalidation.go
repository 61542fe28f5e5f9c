package cache

import "github.com/mishaschwartz/Magpie/pkg/magpie"

// Invalidation names the cached decisions a mutation makes stale. Building
// one is a pure function of "what changed", which keeps the mapping
// testable in isolation from the cache itself.
//
// Remote listings are not invalidated this way: local mutations never stale
// the remote side's own listing, and a sync pass overwrites the cached copy
// wholesale (PutListing) when it fetches.
type Invalidation struct {
	// ResourceIDs lists every resource whose cached decisions must go:
	// the mutated resource plus all of its descendants, since recursive
	// entries reach downward.
	ResourceIDs []int64

	// Users lists users whose principal-set fingerprints must go.
	Users []string
}

// ForEntryMutation invalidates after a permission entry is created or
// deleted on a resource: every decision under the resource's subtree, for
// every principal fingerprint. Coarse but correct.
func ForEntryMutation(subtree []int64) Invalidation {
	return Invalidation{ResourceIDs: subtree}
}

// ForResourceDeletion invalidates after a (possibly cascading) resource
// deletion.
func ForResourceDeletion(deleted []int64) Invalidation {
	return Invalidation{ResourceIDs: deleted}
}

// ForMembershipMutation invalidates after a user joins or leaves a group:
// every decision resolved under that user's old principal set.
func ForMembershipMutation(user string) Invalidation {
	return Invalidation{Users: []string{user}}
}

// ForSyncApply invalidates after a sync pass mutates a service's tree.
func ForSyncApply(created []magpie.Resource) Invalidation {
	ids := make([]int64, len(created))
	for i, r := range created {
		ids[i] = r.ID
	}
	return Invalidation{ResourceIDs: ids}
}
