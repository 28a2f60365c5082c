package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/sharesession/api/controllers"
	"github.com/moyoez/sharesession/api/notifyhub"
	"github.com/moyoez/sharesession/attachment"
	"github.com/moyoez/sharesession/share"
	"github.com/moyoez/sharesession/transfer"
	"github.com/moyoez/sharesession/types"
)

type fakeSender struct {
	mu        sync.Mutex
	addr      string
	container *attachment.Container
	result    transfer.Metadata
	err       error
}

func (f *fakeSender) Send(_ context.Context, addr string, c *attachment.Container, _ bool) (transfer.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addr = addr
	f.container = c
	return f.result, f.err
}

type testServer struct {
	server   *Server
	registry *share.Registry
	sender   *fakeSender
	hub      *notifyhub.Hub
}

func newTestServer() *testServer {
	ts := &testServer{
		registry: share.NewRegistry(time.Minute, nil),
		sender:   &fakeSender{result: transfer.NewMetadata(transfer.StatusComplete)},
		hub:      notifyhub.New(),
	}
	ts.server = NewServer(Options{
		Alias:     "desk",
		SharePort: 53318,
		Registry:  ts.registry,
		Sender:    ts.sender,
		Hub:       ts.hub,
	})
	return ts
}

func (ts *testServer) do(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "127.0.0.1:40000"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)

	var decoded map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		_ = sonic.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

func TestRejectsRemoteClients(t *testing.T) {
	ts := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/self/v1/sessions", nil)
	req.RemoteAddr = "192.0.2.10:40000"
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSessionRoutes(t *testing.T) {
	ts := newTestServer()
	cancelled := make(chan struct{}, 1)
	ts.registry.Register(share.Entry{EndpointID: "ABCD", Direction: share.DirectionOutgoing, RemoteAddr: "10.0.0.2:53318", Status: transfer.StatusInProgress}, func() { cancelled <- struct{}{} })

	w, body := ts.do(http.MethodGet, "/api/self/v1/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	list, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	entry := list[0].(map[string]any)
	assert.Equal(t, "ABCD", entry["endpointId"])
	assert.Equal(t, "in_progress", entry["status"])

	w, body = ts.do(http.MethodGet, "/api/self/v1/sessions/ABCD", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "outgoing", body["data"].(map[string]any)["direction"])

	w, _ = ts.do(http.MethodGet, "/api/self/v1/sessions/ZZZZ", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = ts.do(http.MethodPost, "/api/self/v1/sessions/ABCD/cancel", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	select {
	case <-cancelled:
	default:
		t.Fatal("cancel not forwarded")
	}

	w, _ = ts.do(http.MethodPost, "/api/self/v1/sessions/ZZZZ/cancel", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendRoute(t *testing.T) {
	ts := newTestServer()
	m := transfer.NewMetadata(transfer.StatusComplete).WithProgress(14, 14)
	m.Token = "1234"
	ts.sender.result = m

	w, body := ts.do(http.MethodPost, "/api/self/v1/send", `{"address":"10.0.0.2:53318","texts":[{"body":"hello"}],"wifi":[{"ssid":"Home","password":"pw"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "complete", data["status"])
	assert.Equal(t, "1234", data["token"])
	assert.Equal(t, "10.0.0.2:53318", ts.sender.addr)
	require.NotNil(t, ts.sender.container)
	assert.Len(t, ts.sender.container.TextAttachments(), 1)
	assert.Len(t, ts.sender.container.WifiCredentialsAttachments(), 1)

	w, _ = ts.do(http.MethodPost, "/api/self/v1/send", `{"texts":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.sender.result, ts.sender.err = transfer.NewMetadata(transfer.StatusMissingPayloads), share.ErrNothingToSend
	w, _ = ts.do(http.MethodPost, "/api/self/v1/send", `{"address":"10.0.0.2:53318"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.sender.result, ts.sender.err = transfer.NewMetadata(transfer.StatusFailedToInitiateOutgoingConnection), fmt.Errorf("%w: 10.0.0.2:53318", share.ErrPeerUnreachable)
	w, body = ts.do(http.MethodPost, "/api/self/v1/send", `{"address":"10.0.0.2:53318","texts":[{"body":"x"}]}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, body["error"], "reachability probe")
}

func TestStatusRoute(t *testing.T) {
	ts := newTestServer()
	ts.registry.Register(share.Entry{EndpointID: "ABCD"}, nil)

	w, body := ts.do(http.MethodGet, "/api/self/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "desk", data["alias"])
	assert.Equal(t, true, data["notify_ws_enabled"])
	assert.EqualValues(t, 1, data["sessions"])
}

func TestQRCodeRoutes(t *testing.T) {
	ts := newTestServer()

	w, _ := ts.do(http.MethodGet, "/api/self/v1/create-qr-code?size=64x64&data=10.0.0.2%3A53318", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w, _ = ts.do(http.MethodGet, "/api/self/v1/create-qr-code", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(http.MethodGet, "/api/self/v1/share-qr-code?interface=no-such-interface", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer()
	w, _ := ts.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWithoutHubOrSender(t *testing.T) {
	s := NewServer(Options{})
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/self/v1/notify-ws"},
		{http.MethodPost, "/api/self/v1/send"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		req.RemoteAddr = "127.0.0.1:40000"
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code, route.path)
	}
}

func TestNotifyWebSocket(t *testing.T) {
	ts := newTestServer()
	ts.registry.Register(share.Entry{EndpointID: "ABCD"}, nil)
	srv := httptest.NewServer(ts.server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/self/v1/notify-ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var snapshot types.Notification
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, sonic.Unmarshal(raw, &snapshot))
	assert.Equal(t, controllers.NotifyTypeSnapshot, snapshot.Type)
	assert.Len(t, snapshot.Data["sessions"], 1)

	require.Eventually(t, func() bool { return ts.hub.Len() == 1 }, 5*time.Second, 10*time.Millisecond)
	ts.hub.Broadcast(&types.Notification{Type: types.NotifyTypeTextReceived, Message: "hi"})

	var got types.Notification
	_, raw, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, sonic.Unmarshal(raw, &got))
	assert.Equal(t, types.NotifyTypeTextReceived, got.Type)
	assert.Equal(t, "hi", got.Message)
}
