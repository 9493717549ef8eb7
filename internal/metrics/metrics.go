package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

/*
Metrics Types:

- CounterVec: a counter with labels. Votes are labelled by category and
  outcome so duplicates show up next to recorded votes.

- Histogram: interaction handling latency, measured from decode to the
  confirmation reply.

Registration:
Metrics are registered against the Registerer handed to NewBotMetrics, so tests
can use a private registry and main can use the default one.
*/

type BotMetrics struct {
	Votes           *prometheus.CounterVec
	Clears          *prometheus.CounterVec
	GatewayFailures *prometheus.CounterVec
	Cycles          *prometheus.CounterVec
	HandlingTime    *prometheus.HistogramVec
	EventsApplied   *prometheus.CounterVec
	LiveSubscribers prometheus.Gauge
}

func NewBotMetrics(reg prometheus.Registerer, namespace, subsystem string) *BotMetrics {
	factory := promauto.With(reg)
	return &BotMetrics{
		Votes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "votes_total",
				Help:      "Category selections by outcome (recorded or already_selected)",
			},
			[]string{"category", "outcome"},
		),
		Clears: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "clears_total",
				Help:      "Clear-vote requests by outcome (cleared or nothing_to_clear)",
			},
			[]string{"outcome"},
		),
		GatewayFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "gateway_failures_total",
				Help:      "Failed calls to the chat gateway",
			},
			[]string{"op"},
		),
		Cycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cycle_transitions_total",
				Help:      "Poll cycle transitions (open or closed)",
			},
			[]string{"phase"},
		),
		HandlingTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "interaction_handling_seconds",
				Help:      "Histogram of interaction handling times",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
			},
			[]string{"action"},
		),
		EventsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_applied_total",
				Help:      "Vote events replayed into a tally, by kind",
			},
			[]string{"kind"},
		),
		LiveSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "live_subscribers",
				Help:      "Websocket clients following the live tally",
			},
		),
	}
}
