package main

import (
	"context"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/cactus/go-statsd-client/statsd"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/mishaschwartz/Magpie/pkg/api/db"
	"github.com/mishaschwartz/Magpie/pkg/cache"
	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/metrics"
	"github.com/mishaschwartz/Magpie/pkg/metrics/statsdx"
	"github.com/mishaschwartz/Magpie/pkg/syncer"
)

type SyncCommand struct {
	Logger LagerFlag

	Services map[string]string `long:"service" description:"Backing service listing endpoints, as service-type:url pairs" required:"true"`

	Once     bool          `long:"once" description:"Run a single sync pass per service and exit"`
	Interval time.Duration `long:"interval" description:"Interval between sync passes in daemon mode" default:"5m"`

	FetchRetries       uint64        `long:"fetch-retries" description:"Number of fetch re-attempts per sync pass" default:"2"`
	FetchRetryInterval time.Duration `long:"fetch-retry-interval" description:"Wait between fetch re-attempts" default:"1s"`

	DecisionCacheTTL     time.Duration `long:"decision-cache-ttl" description:"TTL of cached resolver decisions" default:"20s"`
	DecisionCacheDisable bool          `long:"disable-decision-cache" description:"Resolve every decision against the store"`

	ListingCacheTTL     time.Duration `long:"listing-cache-ttl" description:"TTL of cached remote listings" default:"1m"`
	ListingCacheDisable bool          `long:"disable-listing-cache" description:"Fetch the remote listing on every lookup"`

	StatsdHost string `long:"statsd-host" description:"Statsd endpoint for metrics; metrics are dropped when unset"`

	SQL SQLFlag `group:"SQL" namespace:"sql"`
}

func (cmd SyncCommand) Execute([]string) error {
	logger := cmd.Logger.Logger("magpie").WithName("sync")

	conn, err := cmd.SQL.Connect(logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	var statter metrics.Statter = metrics.NullStatter{}
	if cmd.StatsdHost != "" {
		statsdClient, err := statsd.NewClient(cmd.StatsdHost, "magpie")
		if err != nil {
			logger.Error(failedToConnectToStatsd, err)
			return err
		}
		defer statsdClient.Close()
		statter = statsdx.NewStatter(logger, statsdClient)
	}

	cacheConfig := cache.Config{
		DecisionsEnabled: !cmd.DecisionCacheDisable,
		DecisionTTL:      cmd.DecisionCacheTTL,
		ListingsEnabled:  !cmd.ListingCacheDisable,
		ListingTTL:       cmd.ListingCacheTTL,
	}

	store := db.NewDataService(conn)
	engine := syncer.NewEngine(
		store,
		syncer.NewHTTPFetcher(cmd.Services),
		cache.New(cacheConfig),
		clock.NewClock(),
		statter,
		syncer.RetryPolicy{
			MaxRetries: cmd.FetchRetries,
			Interval:   cmd.FetchRetryInterval,
		},
	)

	serviceTypes := make([]string, 0, len(cmd.Services))
	for serviceType := range cmd.Services {
		serviceTypes = append(serviceTypes, serviceType)
	}

	ctx := context.Background()

	if cmd.Once {
		var result *multierror.Error
		for _, serviceType := range serviceTypes {
			if _, err := engine.TriggerSync(ctx, logger, serviceType); err != nil {
				logger.Error(syncPassFailed, err, logx.Data{
					Key:   "service.type",
					Value: serviceType,
				})
				result = multierror.Append(result, err)
			}
		}
		return result.ErrorOrNil()
	}

	return engine.Run(ctx, logger, cmd.Interval, serviceTypes)
}
