package stream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/pipeline"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

func testReport(id string, scores ...float64) *pipeline.Report {
	signals := make([]contracts.Signal, len(scores))
	for i, s := range scores {
		signals[i] = contracts.Signal{
			Transaction:    contracts.Transaction{Ticker: "T" + id},
			CompositeScore: s,
			IsActionable:   s >= 2,
		}
	}
	return &pipeline.Report{ID: id, GeneratedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Signals: signals}
}

type decoded struct {
	Type    string        `json:"type"`
	Payload ReportPayload `json:"payload"`
}

func readMessage(t *testing.T, conn *websocket.Conn) decoded {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg decoded
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestNewReportPayload(t *testing.T) {
	p := NewReportPayload(testReport("r1", 3, 2.5, 1), 2)
	assert.Equal(t, "r1", p.ID)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, 2, p.Actionable)
	assert.Len(t, p.Signals, 2)
}

func TestHub_BroadcastsReports(t *testing.T) {
	hub := NewHub(2, logger.Nop())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	// published before anyone connects
	require.NoError(t, hub.Publish(context.Background(), testReport("first", 3, 2, 1)))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := readMessage(t, conn)
	assert.Equal(t, TypeReport, msg.Type)
	assert.Equal(t, "first", msg.Payload.ID)
	assert.Len(t, msg.Payload.Signals, 2)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), testReport("second", 5)))
	msg = readMessage(t, conn)
	assert.Equal(t, "second", msg.Payload.ID)
	assert.Equal(t, 1, msg.Payload.Actionable)
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub := NewHub(0, logger.Nop())
	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	// publishing with no clients is fine
	assert.NoError(t, hub.Publish(context.Background(), testReport("later", 1)))
}
