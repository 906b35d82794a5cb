package server_test

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/server"
)

const (
	testOrigin  = "http://localhost:6142"
	readTimeout = 2 * time.Second
)

var joinedChatPattern = regexp.MustCompile(`^(.+) has joined the chat\.$`)

// startTestServer runs a Server behind httptest and returns it with its
// WebSocket URL. mutate may adjust the config before the server is built.
func startTestServer(t *testing.T, mutate func(*server.Config)) (*server.Server, *httptest.Server, string) {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{testOrigin}
	if mutate != nil {
		mutate(cfg)
	}

	srv := server.New(*cfg, zap.NewNop())
	srv.StartHub()
	testServer := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Hub().Shutdown(2 * time.Second)
		testServer.Close()
	})

	return srv, testServer, "ws" + strings.TrimPrefix(testServer.URL, "http") + "/ws"
}

// connectWebSocket dials url with an allowed Origin header.
func connectWebSocket(url string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	headers.Set("Origin", testOrigin)
	return dialer.Dial(url, headers)
}

// joinChat connects a client, consumes its join event and help text, and
// returns the default name it was given.
func joinChat(t *testing.T, url string) (*websocket.Conn, string) {
	t.Helper()

	conn, resp, err := connectWebSocket(url)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	event := readEvent(t, conn)
	match := joinedChatPattern.FindStringSubmatch(event.Message)
	require.Len(t, match, 2, "unexpected first event %q", event.Message)
	require.Equal(t, chat.HelpText, readFrame(t, conn))
	return conn, match[1]
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	messageType, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, messageType)
	return string(payload)
}

func readEvent(t *testing.T, conn *websocket.Conn) chat.ChatMessage {
	t.Helper()
	var msg chat.ChatMessage
	frame := readFrame(t, conn)
	require.NoError(t, json.Unmarshal([]byte(frame), &msg), "expected an event envelope, got %q", frame)
	require.NotZero(t, msg.Timestamp)
	return msg
}

func send(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(text)))
}

// expectClosed waits until the server ends conn.
func expectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatalf("connection still open: %v", err)
		}
		return
	}
}
