// Package metrics exposes Prometheus collectors for the invitation core and the
// HTTP surface on a private registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"packs/cmd/internal/invitation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "packs"

// Registry owns the process collectors and the packs-specific metrics.
type Registry struct {
	registry *prometheus.Registry

	invitationOps      *prometheus.CounterVec
	invitationDuration *prometheus.HistogramVec
	httpRequests       *prometheus.CounterVec
	purged             prometheus.Counter
}

// New builds a Registry with the Go and process collectors registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		registry: reg,
		invitationOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invitation",
			Name:      "operations_total",
			Help:      "Invitation operations by name and outcome.",
		}, []string{"op", "outcome"}),
		invitationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "invitation",
			Name:      "operation_duration_seconds",
			Help:      "Invitation operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status class.",
		}, []string{"route", "status"}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invitation",
			Name:      "purged_total",
			Help:      "Lapsed invitations removed by the purger.",
		}),
	}
	reg.MustRegister(r.invitationOps, r.invitationDuration, r.httpRequests, r.purged)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveInvitationOp records one invitation operation.
func (r *Registry) ObserveInvitationOp(op string, err error, elapsed time.Duration) {
	r.invitationOps.WithLabelValues(op, Outcome(err)).Inc()
	r.invitationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObservePurged adds n purged invitations.
func (r *Registry) ObservePurged(n int) {
	if n > 0 {
		r.purged.Add(float64(n))
	}
}

// ObserveHTTP records one served request.
func (r *Registry) ObserveHTTP(route string, status int) {
	r.httpRequests.WithLabelValues(route, strconv.Itoa(status/100)+"xx").Inc()
}

// Outcome maps an operation error to a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case invitation.IsNotFound(err):
		return "not_found"
	case invitation.IsConflict(err):
		return "conflict"
	case invitation.IsInvalidInput(err):
		return "invalid_input"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
