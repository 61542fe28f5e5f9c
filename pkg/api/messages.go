package api

const (
	metricCacheHit  = "magpie.resolve.cache.hit"
	metricCacheMiss = "magpie.resolve.cache.miss"
	metricResolved  = "magpie.resolve.decision"
)
