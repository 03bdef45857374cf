package metrics

import "github.com/prometheus/client_golang/prometheus"

// RateMetrics tracks currency refresh and conversion activity.
type RateMetrics struct {
	refreshSuccess prometheus.Counter
	refreshFailure prometheus.Counter
	conversions    *prometheus.CounterVec
}

// NewRateMetrics registers the rate metrics on the provided registerer.
func NewRateMetrics(reg prometheus.Registerer) *RateMetrics {
	if reg == nil {
		return &RateMetrics{}
	}
	refreshSuccess := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_refresh_success",
		Help: "Successful currency rate refreshes.",
	})
	refreshFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_refresh_failure",
		Help: "Failed currency rate refreshes.",
	})
	conversions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "currency_conversions_total",
		Help: "Currency conversions performed, by source and target code.",
	}, []string{"from", "to"})
	reg.MustRegister(refreshSuccess, refreshFailure, conversions)
	return &RateMetrics{
		refreshSuccess: refreshSuccess,
		refreshFailure: refreshFailure,
		conversions:    conversions,
	}
}

// IncRefreshSuccess counts a completed refresh.
func (r *RateMetrics) IncRefreshSuccess() {
	if r == nil || r.refreshSuccess == nil {
		return
	}
	r.refreshSuccess.Inc()
}

// IncRefreshFailure counts a failed refresh.
func (r *RateMetrics) IncRefreshFailure() {
	if r == nil || r.refreshFailure == nil {
		return
	}
	r.refreshFailure.Inc()
}

// IncConversion counts one conversion between the given codes.
func (r *RateMetrics) IncConversion(from, to string) {
	if r == nil || r.conversions == nil {
		return
	}
	r.conversions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}
