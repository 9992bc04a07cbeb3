package metrics

import (
	"time"
)

// Query kinds.
const (
	KindQuery   = "query"
	KindSuggest = "suggest"
	KindSaved   = "saved_search"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordQuery records a query execution. results is ignored for failed queries.
func (r *Registry) RecordQuery(kind string, err error, duration time.Duration, results int) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.QueriesTotal.WithLabelValues(kind, status).Inc()
	r.QueryDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err == nil {
		r.QueryResults.WithLabelValues(kind).Observe(float64(results))
	}
}

// RecordStage records the duration of one dataset preparation stage.
func (r *Registry) RecordStage(dataset, stage string, duration time.Duration) {
	r.DatasetStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordLoad records a dataset load and, when it succeeded, the published sizes.
func (r *Registry) RecordLoad(dataset string, err error, profiles, relations int) {
	if err != nil {
		r.DatasetLoadsTotal.WithLabelValues(dataset, "error").Inc()
		return
	}
	r.DatasetLoadsTotal.WithLabelValues(dataset, "ok").Inc()
	r.DatasetProfiles.WithLabelValues(dataset).Set(float64(profiles))
	r.DatasetRelations.WithLabelValues(dataset).Set(float64(relations))
}

// RecordCache records a cache lookup.
func (r *Registry) RecordCache(hit bool) {
	if hit {
		r.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return
	}
	r.CacheRequestsTotal.WithLabelValues("miss").Inc()
}

// RecordJob records a finished background job.
func (r *Registry) RecordJob(jobType, status string, duration time.Duration) {
	r.JobsTotal.WithLabelValues(jobType, status).Inc()
	r.JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}
