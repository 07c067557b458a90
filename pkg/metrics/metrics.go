package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/condoflow/condoflow/internal/common/config"
)

// Metrics owns the prometheus registry and the service's instruments.
type Metrics struct {
	registry *prometheus.Registry

	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec

	authzDecisions *prometheus.CounterVec
	inviteRedeems  *prometheus.CounterVec
}

// New builds the registry with process/Go collectors and the HTTP and
// domain instruments registered.
func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: buckets}, []string{"method", "route", "status"})
	r.MustRegister(httpReqCnt, httpDur)

	authzDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "authz_decisions_total"}, []string{"outcome"})
	inviteRedeems := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "invite_redemptions_total"}, []string{"outcome"})
	r.MustRegister(authzDecisions, inviteRedeems)

	return &Metrics{
		registry:       r,
		httpReqCnt:     httpReqCnt,
		httpDur:        httpDur,
		authzDecisions: authzDecisions,
		inviteRedeems:  inviteRedeems,
	}
}

// GinMiddleware records request counts and durations per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

// RecordAuthzDecision counts an access-evaluator outcome ("grant"/"deny").
func (m *Metrics) RecordAuthzDecision(outcome string) {
	m.authzDecisions.WithLabelValues(outcome).Inc()
}

// RecordInviteRedemption counts an accept outcome ("ok"/"conflict"/"error").
func (m *Metrics) RecordInviteRedemption(outcome string) {
	m.inviteRedeems.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
