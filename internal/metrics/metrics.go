package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics records nothing.
//
// Metrics:
//   - civisense_http_requests_total{method,route,status}
//   - civisense_http_request_duration_seconds{method,route}
//   - civisense_chat_cache_total{result} - hit or miss
//   - civisense_provider_calls_total{provider,outcome}
type Metrics struct {
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	ChatCache     *prometheus.CounterVec
	ProviderCalls *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "civisense_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "civisense_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ChatCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "civisense_chat_cache_total",
				Help: "Chat answer cache lookups by result",
			},
			[]string{"result"},
		),
		ProviderCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "civisense_provider_calls_total",
				Help: "Calls to external identity and generative-text providers",
			},
			[]string{"provider", "outcome"},
		),
	}
}

func (m *Metrics) ChatCacheHit() {
	if m != nil {
		m.ChatCache.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) ChatCacheMiss() {
	if m != nil {
		m.ChatCache.WithLabelValues("miss").Inc()
	}
}

// ProviderCall records one external call; err decides the outcome label.
func (m *Metrics) ProviderCall(provider string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ProviderCalls.WithLabelValues(provider, outcome).Inc()
}

// Middleware counts requests by matched route pattern.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		m.HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}
