package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "villabook",
			Name:      "reservation_created_total",
			Help:      "Count of reservation creation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	reservationCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "villabook",
			Name:      "reservation_cancelled_total",
			Help:      "Count of reservations cancelled.",
		},
	)

	paymentOutcome = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "villabook",
			Name:      "payment_outcome_total",
			Help:      "Count of payment gateway callbacks by outcome.",
		},
		[]string{"outcome"},
	)

	holdsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "villabook",
			Name:      "holds_expired_total",
			Help:      "Count of pending holds cancelled by the sweeper.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationCreated, reservationCancelled,
			paymentOutcome, holdsExpired)
	})
}

func IncReservationCreated(outcome string) {
	reservationCreated.WithLabelValues(outcome).Inc()
}

func IncReservationCancelled() {
	reservationCancelled.Inc()
}

func IncPaymentOutcome(outcome string) {
	paymentOutcome.WithLabelValues(outcome).Inc()
}

func IncHoldsExpired() {
	holdsExpired.Inc()
}
