package magpie

import "time"

type Decision string

const (
	DecisionAllow     Decision = "allow"
	DecisionDeny      Decision = "deny"
	DecisionUndefined Decision = "undefined"
)

type Access string

const (
	AccessAllow Access = "allow"
	AccessDeny  Access = "deny"
)

type Scope string

const (
	// ScopeMatch applies an entry to the exact resource it is declared on.
	ScopeMatch Scope = "match"

	// ScopeRecursive applies an entry to the declared resource and all of
	// its descendants, unless a closer entry decides first.
	ScopeRecursive Scope = "recursive"
)

type PrincipalKind string

const (
	PrincipalUser  PrincipalKind = "user"
	PrincipalGroup PrincipalKind = "group"
)

type Principal struct {
	Kind PrincipalKind
	Name string
}

func UserPrincipal(name string) Principal {
	return Principal{Kind: PrincipalUser, Name: name}
}

func GroupPrincipal(name string) Principal {
	return Principal{Kind: PrincipalGroup, Name: name}
}

// Resource is a node of a per-service tree. ParentID is nil only for the
// service root. RemoteID is set once the resource has been matched against
// the backing service's own listing.
type Resource struct {
	ID          int64
	Name        string
	ServiceType string
	ParentID    *int64
	RemoteID    *string
}

func (r Resource) IsRoot() bool {
	return r.ParentID == nil
}

type PermissionEntry struct {
	ResourceID int64
	Principal  Principal
	Action     string
	Access     Access
	Scope      Scope
}

// RemoteResource is one descriptor of the authoritative listing fetched
// from a backing service.
type RemoteResource struct {
	RemoteID       string
	Name           string
	ParentRemoteID string
}

// SyncState is rewritten wholesale on each successful sync pass for a
// service.
type SyncState struct {
	ServiceType    string
	LastSyncAt     time.Time
	KnownRemoteIDs map[string]struct{}
}

func (s SyncState) Knows(remoteID string) bool {
	_, ok := s.KnownRemoteIDs[remoteID]
	return ok
}
