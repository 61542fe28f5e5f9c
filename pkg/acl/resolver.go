// Package acl computes effective permissions over a resource path. The
// resolution is a pure function of its inputs: callers load the path and
// the candidate entries from the store and pass them in.
package acl

import (
	"sort"

	"github.com/mishaschwartz/Magpie/pkg/magpie"
)

// Resolve walks path (service root first, target last) from the target
// toward the root. At each depth it considers the entries attached to that
// resource: both scopes apply on the target itself, only recursive entries
// apply on strict ancestors. The first depth holding any applicable entry
// decides, deny dominating allow at that depth. With no applicable entry
// anywhere the decision is Undefined and the caller applies its own
// default.
//
// entries must already be restricted to the caller's principal set; they
// may span several actions.
func Resolve(path []magpie.Resource, entries []magpie.PermissionEntry, action string) magpie.Decision {
	if len(path) == 0 {
		return magpie.DecisionUndefined
	}

	byResource := make(map[int64][]magpie.PermissionEntry)
	for _, entry := range entries {
		if entry.Action != action {
			continue
		}
		byResource[entry.ResourceID] = append(byResource[entry.ResourceID], entry)
	}

	targetID := path[len(path)-1].ID

	for i := len(path) - 1; i >= 0; i-- {
		node := path[i]

		var allow, deny bool
		for _, entry := range byResource[node.ID] {
			if node.ID != targetID && entry.Scope != magpie.ScopeRecursive {
				continue
			}
			if entry.Access == magpie.AccessDeny {
				deny = true
			} else {
				allow = true
			}
		}

		if deny {
			return magpie.DecisionDeny
		}
		if allow {
			return magpie.DecisionAllow
		}
	}

	return magpie.DecisionUndefined
}

// EffectiveActions resolves every action named by any entry on the path,
// producing the permission matrix for the target resource.
func EffectiveActions(path []magpie.Resource, entries []magpie.PermissionEntry) map[string]magpie.Decision {
	actions := make(map[string]struct{})
	for _, entry := range entries {
		actions[entry.Action] = struct{}{}
	}

	decisions := make(map[string]magpie.Decision, len(actions))
	for action := range actions {
		decision := Resolve(path, entries, action)
		if decision == magpie.DecisionUndefined {
			// Entries exist for the action but none applies here
			// (e.g. a match-scoped ancestor entry).
			continue
		}
		decisions[action] = decision
	}

	return decisions
}

// ExpandPrincipal builds the effective principal set for a user: the user
// itself plus every group it belongs to, in a stable order.
func ExpandPrincipal(user string, groups []string) []magpie.Principal {
	sorted := make([]string, len(groups))
	copy(sorted, groups)
	sort.Strings(sorted)

	principals := make([]magpie.Principal, 0, len(sorted)+1)
	principals = append(principals, magpie.UserPrincipal(user))
	for _, group := range sorted {
		principals = append(principals, magpie.GroupPrincipal(group))
	}

	return principals
}
