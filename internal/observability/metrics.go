package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityStartCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "codepad",
		Subsystem: "activity",
		Name:      "starts_total",
		Help:      "Number of editing intervals opened.",
	})
	activityEndCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codepad",
		Subsystem: "activity",
		Name:      "ends_total",
		Help:      "Number of end actions, labelled by whether an open interval was closed.",
	}, []string{"result"})
	intervalPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "codepad",
		Subsystem: "persistence",
		Name:      "last_interval_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent interval written to Postgres.",
	})
	dailyTotalHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "codepad",
		Subsystem: "activity",
		Name:      "daily_total_seconds",
		Help:      "Distribution of per-user daily totals returned by the aggregator.",
		Buckets:   prometheus.ExponentialBuckets(60, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(activityStartCounter, activityEndCounter, intervalPersistGauge, dailyTotalHistogram)
}

// RecordActivityStart counts an opened interval.
func RecordActivityStart() {
	activityStartCounter.Inc()
}

// RecordActivityEnd counts an end action. closed is false for the soft
// no-op case where no open interval existed.
func RecordActivityEnd(closed bool) {
	result := "closed"
	if !closed {
		result = "noop"
	}
	activityEndCounter.WithLabelValues(result).Inc()
}

// RecordIntervalPersisted updates the persistence watermark gauge.
func RecordIntervalPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	intervalPersistGauge.Set(float64(ts.Unix()))
}

// ObserveDailyTotal records an aggregated daily total.
func ObserveDailyTotal(seconds int64) {
	dailyTotalHistogram.Observe(float64(seconds))
}
