// Package syncer keeps each service's local resource tree consistent with
// the backing service's authoritative listing. A sync pass never deletes:
// resources gone from the remote side are only flagged, and removing them
// is a separate administrator-triggered Clean.
package syncer

import (
	"context"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/cenkalti/backoff/v4"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/mishaschwartz/Magpie/pkg/api/repos"
	"github.com/mishaschwartz/Magpie/pkg/cache"
	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/magpie"
	"github.com/mishaschwartz/Magpie/pkg/metrics"
)

type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateDiffing  State = "diffing"
	StateApplying State = "applying"
	StateFailed   State = "failed"
)

// Store is the persistence surface the engine mutates.
type Store interface {
	repos.ResourceRepo
	repos.SyncRepo
}

// RetryPolicy bounds the fetch retries of a single sync pass.
type RetryPolicy struct {
	MaxRetries uint64
	Interval   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		Interval:   time.Second,
	}
}

type Engine struct {
	store   Store
	fetcher Fetcher
	cache   *cache.Cache
	clk     clock.Clock
	statter metrics.Statter
	retry   RetryPolicy

	mu       sync.Mutex
	inflight map[string]State
}

func NewEngine(
	store Store,
	fetcher Fetcher,
	decisionCache *cache.Cache,
	clk clock.Clock,
	statter metrics.Statter,
	retry RetryPolicy,
) *Engine {
	return &Engine{
		store:    store,
		fetcher:  fetcher,
		cache:    decisionCache,
		clk:      clk,
		statter:  statter,
		retry:    retry,
		inflight: make(map[string]State),
	}
}

// ServiceState reports where the service's pass currently stands; Idle when
// none is running.
func (e *Engine) ServiceState(serviceType string) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.inflight[serviceType]
	if !ok {
		return StateIdle
	}
	return state
}

// TriggerSync runs one Fetch → Diff → Apply pass for the service. Passes
// for the same service are mutually exclusive (magpie.ErrSyncInProgress);
// distinct services sync concurrently. A pass that fails while fetching
// leaves the tree and the stored SyncState untouched.
func (e *Engine) TriggerSync(
	ctx context.Context,
	logger logx.Logger,
	serviceType string,
) (magpie.SyncState, error) {
	logger = logger.WithName("sync").WithData(logx.Data{Key: "service.type", Value: serviceType})

	if !e.begin(serviceType) {
		return magpie.SyncState{}, magpie.ErrSyncInProgress
	}
	defer e.end(serviceType)

	logger.Debug(starting)

	e.setState(serviceType, StateFetching)
	listing, err := e.fetchWithRetry(ctx, logger, serviceType)
	if err != nil {
		e.setState(serviceType, StateFailed)
		e.statter.Inc(metricSyncFailure, 1)
		logger.Error(failedToFetchListing, err)
		return magpie.SyncState{}, err
	}
	e.cache.PutListing(serviceType, listing)

	e.setState(serviceType, StateDiffing)
	local, err := e.store.ListResources(ctx, logger, repos.ListResourcesQuery{ServiceType: serviceType})
	if err != nil {
		e.setState(serviceType, StateFailed)
		e.statter.Inc(metricSyncFailure, 1)
		return magpie.SyncState{}, err
	}
	diff := ComputeDiff(local, listing)

	e.setState(serviceType, StateApplying)
	created, err := e.apply(ctx, logger, serviceType, local, diff)
	if err != nil {
		e.setState(serviceType, StateFailed)
		e.statter.Inc(metricSyncFailure, 1)
		return magpie.SyncState{}, err
	}

	known := make(map[string]struct{}, len(listing))
	for _, d := range listing {
		known[d.RemoteID] = struct{}{}
	}
	state := magpie.SyncState{
		ServiceType:    serviceType,
		LastSyncAt:     e.clk.Now(),
		KnownRemoteIDs: known,
	}
	if err := e.store.PutSyncState(ctx, logger, state); err != nil {
		e.setState(serviceType, StateFailed)
		e.statter.Inc(metricSyncFailure, 1)
		return magpie.SyncState{}, err
	}

	e.cache.Apply(cache.ForSyncApply(created))

	e.statter.Inc(metricSyncSuccess, 1)
	e.statter.Gauge(metricSyncOrphans, int64(len(diff.Orphans)))
	logger.Info(finished, logx.Data{
		Key:   "resources.created",
		Value: len(created),
	}, logx.Data{
		Key:   "resources.orphaned",
		Value: len(diff.Orphans),
	})

	return state, nil
}

// Listing reports the remote descriptors of a service, served from the
// listing cache when a sync pass or an earlier lookup refreshed it within
// its TTL. On a miss it fetches (with the pass retry policy) and caches the
// result.
func (e *Engine) Listing(
	ctx context.Context,
	logger logx.Logger,
	serviceType string,
) ([]magpie.RemoteResource, error) {
	logger = logger.WithName("listing").WithData(logx.Data{Key: "service.type", Value: serviceType})

	if listing, ok := e.cache.GetListing(serviceType); ok {
		return listing, nil
	}

	listing, err := e.fetchWithRetry(ctx, logger, serviceType)
	if err != nil {
		logger.Error(failedToFetchListing, err)
		return nil, err
	}
	e.cache.PutListing(serviceType, listing)

	return listing, nil
}

// Orphans lists the resources flagged out of sync by the last pass.
func (e *Engine) Orphans(
	ctx context.Context,
	logger logx.Logger,
	serviceType string,
) ([]magpie.Resource, error) {
	state, err := e.store.GetSyncState(ctx, logger, serviceType)
	if err != nil {
		return nil, err
	}

	local, err := e.store.ListResources(ctx, logger, repos.ListResourcesQuery{ServiceType: serviceType})
	if err != nil {
		return nil, err
	}

	var orphans []magpie.Resource
	for _, r := range local {
		if r.RemoteID != nil && !state.Knows(*r.RemoteID) {
			orphans = append(orphans, r)
		}
	}

	return orphans, nil
}

// Clean cascades the deletion of a single flagged orphan. Resources still
// known remotely are refused with magpie.ErrNotOrphan.
func (e *Engine) Clean(
	ctx context.Context,
	logger logx.Logger,
	resourceID int64,
) error {
	logger = logger.WithName("clean").WithData(logx.Data{Key: "resource.id", Value: resourceID})

	resource, err := e.store.GetResource(ctx, logger, resourceID)
	if err != nil {
		return err
	}

	state, err := e.store.GetSyncState(ctx, logger, resource.ServiceType)
	if err != nil {
		return err
	}

	if resource.RemoteID == nil || state.Knows(*resource.RemoteID) {
		logger.Error(errNotOrphan, magpie.ErrNotOrphan)
		return magpie.ErrNotOrphan
	}

	deleted, err := e.store.DeleteResource(ctx, logger, repos.DeleteResourceQuery{
		ResourceID: resourceID,
		Cascade:    true,
	})
	if err != nil {
		return err
	}

	e.cache.Apply(cache.ForResourceDeletion(deleted))
	e.statter.Inc(metricCleaned, int64(len(deleted)))
	logger.Info(finished, logx.Data{Key: "resources.deleted", Value: len(deleted)})

	return nil
}

// CleanAll cleans every listed orphan, keeps going on individual failures
// and reports them all.
func (e *Engine) CleanAll(
	ctx context.Context,
	logger logx.Logger,
	resourceIDs []int64,
) error {
	var result *multierror.Error
	for _, id := range resourceIDs {
		if err := e.Clean(ctx, logger, id); err != nil {
			// A cascading clean may already have removed nested ids
			// in the same batch.
			if err == magpie.ErrResourceNotFound {
				continue
			}
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// Run triggers a pass for every listed service on each tick until the
// context is done.
func (e *Engine) Run(
	ctx context.Context,
	logger logx.Logger,
	interval time.Duration,
	serviceTypes []string,
) error {
	logger = logger.WithName("run")

	ticker := e.clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			for _, serviceType := range serviceTypes {
				if _, err := e.TriggerSync(ctx, logger, serviceType); err != nil && err != magpie.ErrSyncInProgress {
					logger.Error(syncPassFailed, err, logx.Data{
						Key:   "service.type",
						Value: serviceType,
					})
				}
			}
		}
	}
}

func (e *Engine) fetchWithRetry(
	ctx context.Context,
	logger logx.Logger,
	serviceType string,
) ([]magpie.RemoteResource, error) {
	var listing []magpie.RemoteResource

	operation := func() error {
		var err error
		listing, err = e.fetcher.Fetch(ctx, logger, serviceType)
		if err == magpie.ErrServiceNotFound {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(e.retry.Interval), e.retry.MaxRetries),
		ctx,
	)

	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return listing, nil
}

func (e *Engine) apply(
	ctx context.Context,
	logger logx.Logger,
	serviceType string,
	local []magpie.Resource,
	diff Diff,
) ([]magpie.Resource, error) {
	var root *magpie.Resource
	idByRemote := make(map[string]int64)
	for i, r := range local {
		if r.IsRoot() {
			root = &local[i]
		}
		if r.RemoteID != nil {
			idByRemote[*r.RemoteID] = r.ID
		}
	}
	if root == nil && len(diff.ToCreate) > 0 {
		return nil, magpie.ErrServiceNotFound
	}

	var created []magpie.Resource
	for _, d := range diff.ToCreate {
		parentID := root.ID
		if d.ParentRemoteID != "" {
			if id, ok := idByRemote[d.ParentRemoteID]; ok {
				parentID = id
			}
		}

		remoteID := d.RemoteID
		resource, err := e.store.CreateResource(ctx, logger, repos.CreateResourceQuery{
			ServiceType: serviceType,
			Name:        d.Name,
			ParentID:    &parentID,
			RemoteID:    &remoteID,
		})
		if err != nil {
			return nil, err
		}

		idByRemote[d.RemoteID] = resource.ID
		created = append(created, resource)
	}

	for _, update := range diff.ToUpdate {
		err := e.store.UpdateResource(ctx, logger, repos.UpdateResourceQuery{
			ResourceID: update.ResourceID,
			Name:       update.Name,
		})
		if err != nil {
			return nil, err
		}
	}

	return created, nil
}

func (e *Engine) begin(serviceType string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.inflight[serviceType]; ok {
		return false
	}
	e.inflight[serviceType] = StateFetching
	return true
}

func (e *Engine) setState(serviceType string, state State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.inflight[serviceType] = state
}

func (e *Engine) end(serviceType string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.inflight, serviceType)
}
