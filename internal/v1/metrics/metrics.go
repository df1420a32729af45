package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the card duel backend.
//
// Naming convention: namespace_subsystem_name
// - namespace: card_duel (application-level grouping)
// - subsystem: websocket, room, match (feature-level grouping)
//
// Metric types:
// - Gauge: current state (connections, rooms, matches)
// - Counter: cumulative events (socket events processed, matches completed)
// - Histogram: latency distributions (event processing time)

var (
	// ActiveConnections tracks the current number of authenticated socket sessions.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "card_duel",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket sessions",
	})

	// WaitingRooms tracks the current number of rooms in the waiting list.
	WaitingRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "card_duel",
		Subsystem: "room",
		Name:      "waiting_rooms",
		Help:      "Current number of rooms waiting for a second player",
	})

	// ActiveMatches tracks the current number of in-game rooms.
	ActiveMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "card_duel",
		Subsystem: "match",
		Name:      "matches_active",
		Help:      "Current number of matches in progress",
	})

	// SocketEvents counts inbound socket events by type and outcome.
	SocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "card_duel",
		Subsystem: "websocket",
		Name:      "events_total",
		Help:      "Total WebSocket events processed",
	}, []string{"event_type", "status"})

	// MatchesCompleted counts matches that reached a natural end, by outcome.
	MatchesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "card_duel",
		Subsystem: "match",
		Name:      "completed_total",
		Help:      "Total matches completed",
	}, []string{"winner_role"})

	// EventProcessingDuration tracks time spent processing socket events.
	EventProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "card_duel",
		Subsystem: "websocket",
		Name:      "event_processing_seconds",
		Help:      "Time spent processing WebSocket events",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"event_type"})

	// RateLimitExceeded counts rejected requests by endpoint and key type.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "card_duel",
		Subsystem: "ratelimit",
		Name:      "exceeded_total",
		Help:      "Total requests rejected by rate limiting",
	}, []string{"endpoint", "key_type"})

	// RateLimitRequests counts requests that passed rate limiting.
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "card_duel",
		Subsystem: "ratelimit",
		Name:      "requests_total",
		Help:      "Total requests checked by rate limiting",
	}, []string{"endpoint"})
)

func IncConnection() {
	ActiveConnections.Inc()
}

func DecConnection() {
	ActiveConnections.Dec()
}
