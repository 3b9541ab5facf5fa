package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"saferoads/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := hub.GetStats(); got == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d clients", n)
}

func TestBroadcastEscalation(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.BroadcastEscalation(models.Escalation{ReportID: "123456", DamageScore: 88, Status: models.StatusPriority})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string            `json:"type"`
		Data models.Escalation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "escalation", msg.Type)
	assert.Equal(t, 88, msg.Data.DamageScore)
	assert.Equal(t, "123456", msg.Data.ReportID)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestBroadcastWithoutListenersDoesNotBlock(t *testing.T) {
	hub := NewHub()
	for i := 0; i < 300; i++ {
		hub.BroadcastEscalation(models.Escalation{DamageScore: i})
	}
	n, last := hub.GetStats()
	assert.Equal(t, 0, n)
	assert.True(t, last.IsZero())
}
