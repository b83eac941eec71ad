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

	"chain-fraud-lab/internal/domain"
	"chain-fraud-lab/internal/logging"
)

const (
	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestHub_BroadcastsReports(t *testing.T) {
	hub := NewHub(logging.Nop())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	conn := dial(t, server, "")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	report := &domain.Report{ID: "r-1", Entity: addrA, Decision: domain.Decision{Verdict: domain.VerdictClear}}
	require.NoError(t, hub.Publish(context.Background(), report))

	msg := readMessage(t, conn)
	assert.Equal(t, "report", msg.Type)
	require.NotNil(t, msg.Report)
	assert.Equal(t, "r-1", msg.Report.ID)
	assert.Equal(t, domain.VerdictClear, msg.Report.Decision.Verdict)
}

func TestHub_EntityFilter(t *testing.T) {
	hub := NewHub(logging.Nop())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	// Upper-case query is canonicalized before matching.
	watchA := dial(t, server, "?entity=0x"+strings.ToUpper(addrA[2:]))
	watchB := dial(t, server, "?entity="+addrB)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), &domain.Report{ID: "for-b", Entity: addrB}))

	msg := readMessage(t, watchB)
	assert.Equal(t, "for-b", msg.Report.ID)

	require.NoError(t, watchA.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := watchA.ReadMessage()
	assert.Error(t, err, "subscriber for another entity must not receive the report")
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(logging.Nop())
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server, "")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseRejectsNewSubscribers(t *testing.T) {
	hub := NewHub(logging.Nop())
	server := httptest.NewServer(hub)
	defer server.Close()

	require.NoError(t, hub.Close())
	conn := dial(t, server, "")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Clients())
}
