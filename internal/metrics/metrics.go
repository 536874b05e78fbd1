package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	UsersRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of first-contact user registrations",
		},
	)
	PromoRedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_redemptions_total",
			Help: "Total number of promo code redemption attempts by outcome",
		},
		[]string{"outcome"},
	)
	PaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Total number of payment applications by outcome",
		},
		[]string{"outcome"},
	)
	SubscriptionDaysGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_days_granted_total",
			Help: "Total subscription days granted by source",
		},
		[]string{"source"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestsInFlight)

	prometheus.MustRegister(UsersRegisteredTotal)
	prometheus.MustRegister(PromoRedemptionsTotal)
	prometheus.MustRegister(PaymentsTotal)
	prometheus.MustRegister(SubscriptionDaysGranted)
}
