package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Tasks (worker)

	TaskDuration  *prometheus.HistogramVec
	TaskResults   *prometheus.CounterVec
	TasksInFlight prometheus.Gauge

	// Domain
	ApplicationsTotal *prometheus.CounterVec
	CacheResults      *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storejobs",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "storejobs",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				// Sane initial defaults
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "storejobs",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "storejobs",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "Store call latency by table entity and logical op.",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"entity", "op", "status"}, // status=ok|not_found|error
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storejobs",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "Store errors by table entity, logical op and class.",
			},
			[]string{"entity", "op", "class"},
		),

		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "storejobs",
				Subsystem: "tasks",
				Name:      "duration_seconds",
				Help:      "Task execution duration by type and result",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"task_type", "result"}, // result=done|retry|failed
		),
		TaskResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storejobs",
				Subsystem: "tasks",
				Name:      "results_total",
				Help:      "Task outcomes by type and result.",
			},
			[]string{"task_type", "result"}, // result=done|retry|failed
		),
		TasksInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "storejobs",
				Subsystem: "tasks",
				Name:      "in_flight",
				Help:      "Current number of executing tasks in this process",
			},
		),
	}
	p.ApplicationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storejobs",
			Subsystem: "applications",
			Name:      "events_total",
			Help:      "Application lifecycle events by kind and resulting status.",
		},
		[]string{"event", "status"}, // event=submitted|duplicate|reviewed|edited|deleted
	)
	p.CacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storejobs",
			Subsystem: "cache",
			Name:      "results_total",
			Help:      "Listing cache lookups by result.",
		},
		[]string{"cache", "result"}, // result=hit|miss|error
	)

	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.TaskDuration, p.TaskResults, p.TasksInFlight,
		p.ApplicationsTotal, p.CacheResults,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// ApplicationEvent is nil-safe so handlers can run without metrics wired.
func (p *Prom) ApplicationEvent(event, status string) {
	if p == nil {
		return
	}
	p.ApplicationsTotal.WithLabelValues(event, status).Inc()
}

func (p *Prom) CacheResult(cache, result string) {
	if p == nil {
		return
	}
	p.CacheResults.WithLabelValues(cache, result).Inc()
}
