package websocket

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/bet-intel/internal/services"
)

func newTestHub() *AnalysisHub {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewAnalysisHub(log)
}

func newTestClient(hub *AnalysisHub, buffer int, matchIDs ...string) *Client {
	client := &Client{
		MatchIDs: matchIDs,
		Send:     make(chan []byte, buffer),
		Hub:      hub,
	}
	client.touch()
	return client
}

func TestHubSurvivesSaturatedClient(t *testing.T) {
	hub := newTestHub()
	go hub.Run()

	// Pre-fill the send buffer so the welcome message cannot queue.
	saturated := newTestClient(hub, 1)
	saturated.Send <- []byte("backlog")
	hub.register <- saturated

	healthy := newTestClient(hub, 4)
	registered := make(chan struct{})
	go func() {
		hub.register <- healthy
		close(registered)
	}()

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("hub stopped accepting registrations after a saturated client")
	}

	require.Eventually(t, func() bool {
		return hub.GetConnectionCount() == 1
	}, 2*time.Second, 10*time.Millisecond, "saturated client should be dropped, healthy one kept")

	select {
	case msg := <-healthy.Send:
		assert.Contains(t, string(msg), "connected")
	case <-time.After(time.Second):
		t.Fatal("healthy client never received its welcome message")
	}
}

func TestHubFanOutDropsOnlyTheFullSubscriber(t *testing.T) {
	hub := newTestHub()
	go hub.Run()

	full := newTestClient(hub, 1, "match-1")
	full.Send <- []byte("backlog")
	healthy := newTestClient(hub, 8, "match-1")

	hub.register <- healthy
	<-healthy.Send // welcome
	hub.register <- full

	require.Eventually(t, func() bool {
		return hub.GetConnectionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.BroadcastAnalysis(services.AnalysisPayload{MatchID: "match-1", Verdict: "GREEN_LIGHT"})

	select {
	case msg := <-healthy.Send:
		assert.Contains(t, string(msg), "GREEN_LIGHT")
	case <-time.After(2 * time.Second):
		t.Fatal("analysis broadcast never reached the healthy subscriber")
	}

	stats := hub.GetHubStats()
	assert.Equal(t, 1, stats["total_clients"])
}
