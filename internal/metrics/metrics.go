package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution outcomes
const (
	OutcomeAggregator = "aggregator"
	OutcomeFallback   = "fallback"
	OutcomeEmpty      = "empty"
)

var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsource_resolutions_total",
		Help: "Total number of source resolutions by which stage produced the primary candidates",
	}, []string{"outcome"})

	providerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsource_provider_failures_total",
		Help: "Total number of aggregator request failures by provider id",
	}, []string{"provider"})

	subtitleFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidsource_subtitle_fallbacks_total",
		Help: "Total number of times the fixed subtitle track list was served",
	})

	resolutionCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsource_resolution_cache_total",
		Help: "Resolution cache lookups by result",
	}, []string{"result"})

	sessionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsource_session_transitions_total",
		Help: "Total number of playback session state transitions by target state",
	}, []string{"state"})
)

// RecordResolution counts one resolution by outcome
func RecordResolution(outcome string) {
	resolutionsTotal.WithLabelValues(normalizeOutcome(outcome)).Inc()
}

// RecordProviderFailure counts one failure for a provider id
func RecordProviderFailure(provider string) {
	if provider == "" {
		provider = "unknown"
	}
	providerFailuresTotal.WithLabelValues(provider).Inc()
}

// RecordSubtitleFallback counts one use of the fallback subtitle list
func RecordSubtitleFallback() {
	subtitleFallbacksTotal.Inc()
}

// RecordCacheLookup counts one resolution cache lookup
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	resolutionCacheTotal.WithLabelValues(result).Inc()
}

// RecordSessionTransition counts one session state change
func RecordSessionTransition(state string) {
	sessionTransitionsTotal.WithLabelValues(state).Inc()
}

func normalizeOutcome(outcome string) string {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case OutcomeAggregator, OutcomeFallback, OutcomeEmpty:
		return strings.ToLower(strings.TrimSpace(outcome))
	default:
		return "unknown"
	}
}
