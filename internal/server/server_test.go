package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/roomrelay/internal/client"
	"github.com/BioHazard786/roomrelay/internal/config"
	"github.com/BioHazard786/roomrelay/internal/logging"
	"github.com/BioHazard786/roomrelay/internal/signaling"
)

func testConfig() *config.Config {
	return &config.Config{
		ListenAddr:      "127.0.0.1:0",
		AllowedOrigins:  []string{"*"},
		SendBuffer:      16,
		MaxMessageBytes: 64 * 1024,
		MetricsEnabled:  true,
		MetricsPath:     "/metrics",
		ShutdownTimeout: time.Second,
		LogFormat:       "text",
	}
}

// startServer serves a fresh relay on a loopback port and returns its address.
func startServer(t *testing.T, cfg *config.Config) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := New(cfg, signaling.NewHub(logging.Discard()), logging.Discard())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return ln.Addr().String()
}

func dial(t *testing.T, addr string) *client.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := client.NewClient("ws://"+addr+"/ws", logging.Discard())
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(c.Close)
	return c
}

func next(t *testing.T, c *client.Client) client.Event {
	t.Helper()
	select {
	case msg, ok := <-c.Incoming():
		require.True(t, ok, "connection closed")
		ev, err := client.Decode(msg)
		require.NoError(t, err)
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a relay message")
		return client.Event{}
	}
}

func TestRelayEndToEnd(t *testing.T) {
	addr := startServer(t, testConfig())
	x, y, z := dial(t, addr), dial(t, addr), dial(t, addr)

	// The upgrade completes before the hub learns about a connection; an
	// answered join proves z is registered before room1 fills up.
	require.NoError(t, z.Join("waiting"))
	require.Equal(t, signaling.EventRoomStatus, next(t, z).Type)

	require.NoError(t, x.Join("room1"))
	ev := next(t, x)
	assert.Equal(t, signaling.EventRoomStatus, ev.Type)
	assert.Equal(t, signaling.RoomStatusPayload{Size: 1}, ev.Status)

	require.NoError(t, y.Join("room1"))
	for _, c := range []*client.Client{x, y} {
		ev = next(t, c)
		assert.Equal(t, signaling.EventRoomStatus, ev.Type)
		assert.Equal(t, signaling.RoomStatusPayload{Size: 2, IsRoomFull: true}, ev.Status)
	}
	for _, c := range []*client.Client{x, y, z} {
		ev = next(t, c)
		assert.Equal(t, signaling.EventRoomClosed, ev.Type)
		assert.Equal(t, "room1", ev.RoomID)
	}

	require.NoError(t, z.Join("room1"))
	ev = next(t, z)
	assert.Equal(t, signaling.EventRoomFull, ev.Type)
	assert.Equal(t, "room1", ev.RoomID)

	require.NoError(t, x.SendDescription("room1", signaling.EventOffer, "v=0"))
	ev = next(t, y)
	assert.Equal(t, signaling.EventOffer, ev.Type)
	assert.Equal(t, signaling.RelayedDescription{SDP: "v=0", Type: "offer"}, ev.Description)

	require.NoError(t, y.SendCandidate("room1", map[string]any{"candidate": "candidate:1", "sdpMid": "0"}))
	ev = next(t, x)
	assert.Equal(t, signaling.EventICECandidate, ev.Type)
	assert.JSONEq(t, `{"candidate":"candidate:1","sdpMid":"0"}`, string(ev.Candidate))

	rooms, err := client.FetchRooms(context.Background(), "http://"+addr+"/rooms")
	require.NoError(t, err)
	assert.Equal(t, []signaling.RoomInfo{
		{RoomID: "room1", Size: 2, IsRoomFull: true},
		{RoomID: "waiting", Size: 1},
	}, rooms)

	y.Close()
	ev = next(t, x)
	assert.Equal(t, signaling.EventRoomStatus, ev.Type)
	assert.Equal(t, signaling.RoomStatusPayload{Size: 1}, ev.Status)

	x.Close()
	ev = next(t, z)
	assert.Equal(t, signaling.EventRoomAvailable, ev.Type)
	assert.Equal(t, "room1", ev.RoomID)
}

func TestMalformedFrameKeepsConnection(t *testing.T) {
	addr := startServer(t, testConfig())

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","payload":"room1"}`)))

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg signaling.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, signaling.EventRoomStatus, msg.Type)
	assert.JSONEq(t, `{"size":1,"isRoomFull":false}`, string(msg.Payload))
}

func TestOriginCheck(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	addr := startServer(t, cfg)

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://app.example.com")
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", header)
	require.NoError(t, err)
	conn.Close()
}

func TestHTTPRoutes(t *testing.T) {
	addr := startServer(t, testConfig())

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + addr + "/rooms")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `[]`, string(body))

	resp, err = http.Post("http://"+addr+"/rooms", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "roomrelay_participants_connected")
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = false
	srv := New(cfg, signaling.NewHub(logging.Discard()), logging.Discard())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoomsUnavailableAfterStop(t *testing.T) {
	hub := signaling.NewHub(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	rec := httptest.NewRecorder()
	roomsHandler(hub, logging.Discard())(rec, httptest.NewRequest(http.MethodGet, "/rooms", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var rooms []signaling.RoomInfo
	assert.Error(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
}
