// Package metrics registers the Prometheus instruments used across the
// engine. Everything registers on the default registry; cmd/server
// exposes it on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsApplied counts change-notification events reconciled into
	// the ledger, by collection and operation.
	EventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tally_events_applied_total",
		Help: "Change events reconciled into the ledger working set.",
	}, []string{"collection", "op"})

	// EventsIgnored counts update/delete events that referenced an
	// unknown id and were dropped.
	EventsIgnored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tally_events_ignored_total",
		Help: "Change events dropped because no cached record matched.",
	}, []string{"collection", "op"})

	// Reconnects counts bus subscription attempts after a drop.
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tally_bus_reconnects_total",
		Help: "Re-subscribe attempts to the change-notification bus.",
	})

	// BalanceComputations counts full balance folds.
	BalanceComputations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tally_balance_computations_total",
		Help: "Full per-group balance folds executed.",
	})

	// NotificationSends counts outbound notification attempts by kind
	// and terminal result.
	NotificationSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tally_notification_sends_total",
		Help: "Outbound notifications by kind and terminal result.",
	}, []string{"kind", "result"})
)
