// Package metrics holds the Prometheus collectors exported by gophmail.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "gophmail"
)

// Label values for UserLookupDuration's source label.
const (
	SourceStore = "store"
	SourceCache = "cache"
)

var (
	// AuthRejectionsTotal counts requests turned away by the verifier or a
	// role gate, by stable error code.
	AuthRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_rejections_total",
		Help:      "Requests rejected during authentication or authorization.",
	}, []string{"reason"})

	TokensIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Tokens issued, by kind (access, refresh).",
	}, []string{"kind"})

	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	UserLookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "user_lookup_duration_seconds",
		Help:      "Time spent re-reading the user during token verification.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"source"})
)
