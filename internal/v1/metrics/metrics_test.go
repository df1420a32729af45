package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestConnectionGauge(t *testing.T) {
	before := testutil.ToFloat64(ActiveConnections)

	IncConnection()
	assert.Equal(t, before+1, testutil.ToFloat64(ActiveConnections))

	DecConnection()
	assert.Equal(t, before, testutil.ToFloat64(ActiveConnections))
}

func TestRoomAndMatchGauges(t *testing.T) {
	waitingBefore := testutil.ToFloat64(WaitingRooms)
	matchesBefore := testutil.ToFloat64(ActiveMatches)

	WaitingRooms.Inc()
	ActiveMatches.Inc()

	assert.Equal(t, waitingBefore+1, testutil.ToFloat64(WaitingRooms))
	assert.Equal(t, matchesBefore+1, testutil.ToFloat64(ActiveMatches))

	WaitingRooms.Dec()
	ActiveMatches.Dec()
}

func TestCountersDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		SocketEvents.WithLabelValues("attack", "ok").Inc()
		SocketEvents.WithLabelValues("attack", "error").Inc()
		MatchesCompleted.WithLabelValues("host").Inc()
		EventProcessingDuration.WithLabelValues("drawCards").Observe(0.002)
		RateLimitExceeded.WithLabelValues("websocket_connect", "ip").Inc()
		RateLimitRequests.WithLabelValues("/api/v1/decks").Inc()
	})
}
