package handler

import (
	"bufio"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtinfra "github.com/qna-api/internal/infrastructure/jwt"
	"github.com/qna-api/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVerifier maps token strings to user ids.
type fakeVerifier struct{ users map[string]string }

func (f fakeVerifier) Verify(tokenStr string) (*jwtinfra.Claims, error) {
	uid, ok := f.users[tokenStr]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &jwtinfra.Claims{UserID: uid, Role: "user"}, nil
}

type devNull struct{}

func (devNull) Write(p []byte) (int, error) { return len(p), nil }

func newStreamFixture(t *testing.T, heartbeat time.Duration) (*realtime.Hub, *httptest.Server) {
	t.Helper()
	hub := realtime.NewHub(8, slog.New(slog.NewTextHandler(devNull{}, nil)))
	h := NewStreamHandler(hub, fakeVerifier{users: map[string]string{"good-token": "u1"}}, heartbeat)
	srv := httptest.NewServer(http.HandlerFunc(h.Stream))
	t.Cleanup(srv.Close)
	return hub, srv
}

// readEvent reads one "event:"/"data:" frame pair from the stream.
func readEvent(t *testing.T, r *bufio.Reader) (event, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		switch {
		case len(line) > 7 && line[:7] == "event: ":
			event = line[7 : len(line)-1]
		case len(line) > 6 && line[:6] == "data: ":
			data = line[6 : len(line)-1]
		case line == "\n":
			return event, data
		}
	}
}

func TestStream_MissingToken(t *testing.T) {
	_, srv := newStreamFixture(t, time.Minute)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStream_InvalidToken(t *testing.T) {
	_, srv := newStreamFixture(t, time.Minute)

	resp, err := http.Get(srv.URL + "?token=bogus")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStream_ConnectedEventThenNotification(t *testing.T) {
	hub, srv := newStreamFixture(t, time.Minute)

	resp, err := http.Get(srv.URL + "?token=good-token")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	event, data := readEvent(t, reader)
	assert.Equal(t, "connected", event)
	assert.JSONEq(t, `{"user_id":"u1"}`, data)

	// The handler registers with the hub before sending "connected", so a
	// push now is guaranteed to reach this connection.
	delivered := hub.SendToUser("u1", []byte(`{"id":"n1","message":"hi"}`))
	require.Equal(t, 1, delivered)

	event, data = readEvent(t, reader)
	assert.Equal(t, "notification", event)
	assert.JSONEq(t, `{"id":"n1","message":"hi"}`, data)
}

func TestStream_BearerHeaderFallback(t *testing.T) {
	_, srv := newStreamFixture(t, time.Minute)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer good-token")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	event, _ := readEvent(t, bufio.NewReader(resp.Body))
	assert.Equal(t, "connected", event)
}

func TestStream_Heartbeat(t *testing.T) {
	_, srv := newStreamFixture(t, 20*time.Millisecond)

	resp, err := http.Get(srv.URL + "?token=good-token")
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	event, _ := readEvent(t, reader)
	require.Equal(t, "connected", event)

	event, data := readEvent(t, reader)
	assert.Equal(t, "heartbeat", event)
	assert.JSONEq(t, `{"type":"ping"}`, data)
}

func TestStream_DisconnectRemovesConnection(t *testing.T) {
	hub, srv := newStreamFixture(t, time.Minute)

	resp, err := http.Get(srv.URL + "?token=good-token")
	require.NoError(t, err)

	reader := bufio.NewReader(resp.Body)
	event, _ := readEvent(t, reader)
	require.Equal(t, "connected", event)
	require.Equal(t, 1, hub.TotalConnections())

	resp.Body.Close()

	require.Eventually(t, func() bool { return hub.TotalConnections() == 0 },
		2*time.Second, 10*time.Millisecond)
}
