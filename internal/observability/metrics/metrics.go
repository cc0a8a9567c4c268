package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics captures worker and fulfillment health signals.
type Metrics struct {
	httpDuration *prometheus.HistogramVec

	tasksClaimed   prometheus.Counter
	tasksProcessed *prometheus.CounterVec
	taskDuration   prometheus.Histogram
	callRetries    *prometheus.CounterVec

	paymentNotifications *prometheus.CounterVec
	creditsGranted       prometheus.Counter
}

// New registers the application instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixelmint_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		tasksClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelmint_worker_tasks_claimed_total",
			Help: "Tasks claimed by the generation worker.",
		}),
		tasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelmint_worker_tasks_processed_total",
			Help: "Tasks finalized by the generation worker, by terminal status.",
		}, []string{"status"}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixelmint_worker_task_duration_seconds",
			Help:    "End-to-end processing duration per task.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		callRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelmint_worker_call_retries_total",
			Help: "Retries of external calls, by call type.",
		}, []string{"call"}),
		paymentNotifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelmint_payment_notifications_total",
			Help: "Inbound payment notifications, by outcome.",
		}, []string{"outcome"}),
		creditsGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelmint_credits_granted_total",
			Help: "Credits granted through payment fulfillment.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.httpDuration,
			m.tasksClaimed,
			m.tasksProcessed,
			m.taskDuration,
			m.callRetries,
			m.paymentNotifications,
			m.creditsGranted,
		)
	}
	return m
}

func (m *Metrics) AddTasksClaimed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tasksClaimed.Add(float64(n))
}

func (m *Metrics) IncTaskProcessed(status string) {
	if m == nil {
		return
	}
	m.tasksProcessed.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveTaskDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.taskDuration.Observe(d.Seconds())
}

func (m *Metrics) IncCallRetry(call string) {
	if m == nil {
		return
	}
	m.callRetries.WithLabelValues(call).Inc()
}

func (m *Metrics) IncPaymentNotification(outcome string) {
	if m == nil {
		return
	}
	m.paymentNotifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddCreditsGranted(credits int64) {
	if m == nil || credits <= 0 {
		return
	}
	m.creditsGranted.Add(float64(credits))
}

// GinMiddleware records request durations.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
