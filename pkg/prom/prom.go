package prom

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lending"

var (
	ApplicationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "application",
		Name:      "created_total",
		Help:      "Loan applications that passed eligibility and were stored.",
	})

	ApplicationsRejectedByRule = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "application",
		Name:      "eligibility_failures_total",
		Help:      "Loan applications refused by the eligibility validator.",
	}, []string{"code"})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "application",
		Name:      "status_transitions_total",
		Help:      "Committed loan application status changes.",
	}, []string{"from", "to"})

	PaymentsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "repayment",
		Name:      "payments_total",
		Help:      "Installments paid.",
	})

	PenaltiesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "repayment",
		Name:      "penalties_total",
		Help:      "Penalties added to installments.",
	})

	OverdueInstallments = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "repayment",
		Name:      "overdue_installments",
		Help:      "Unpaid installments past their due date at the last scan.",
	})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notification",
		Name:      "failures_total",
		Help:      "Notifications that could not be delivered or enqueued.",
	}, []string{"kind"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notification",
		Name:      "sent_total",
		Help:      "Notifications delivered or enqueued.",
	}, []string{"kind"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request latency labelled by the mux route template.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
