// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SharesCreated counts successfully created shares.
	SharesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "travplanner",
		Name:      "shares_created_total",
		Help:      "Number of share documents created.",
	})

	// PayloadPushes counts payload overwrites by outcome (ok, rejected, error).
	PayloadPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "travplanner",
		Name:      "payload_pushes_total",
		Help:      "Number of payload pushes received, by outcome.",
	}, []string{"outcome"})

	// Bans counts ban actions, including idempotent repeats.
	Bans = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "travplanner",
		Name:      "member_bans_total",
		Help:      "Number of ban requests applied.",
	})

	// ChatMessages counts stored chat messages.
	ChatMessages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "travplanner",
		Name:      "chat_messages_total",
		Help:      "Number of chat messages stored.",
	})

	// MembersPruned counts presence entries removed by the expiry sweeper.
	MembersPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "travplanner",
		Name:      "presence_pruned_shares_total",
		Help:      "Number of shares whose member list lost stale entries.",
	})

	// Subscribers tracks open event streams by kind (share, messages).
	Subscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "travplanner",
		Name:      "event_subscribers",
		Help:      "Number of open server-sent event streams.",
	}, []string{"kind"})
)
