package hub

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\n")
}

func TestBroadcastReachesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New(zaptest.NewLogger(t))
	ran := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(ran)
	}()

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, ": connected", readLine(t, r))
	readLine(t, r)

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.Broadcast(map[string]string{"type": "mvp_updated"})
	assert.Equal(t, `data: {"type":"mvp_updated"}`, readLine(t, r))

	cancel()
	<-ran
	assert.Equal(t, 0, h.ClientCount())
}

func TestKeepAlive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New(zaptest.NewLogger(t))
	h.SetKeepAlive(20 * time.Millisecond)
	ran := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(ran)
	}()
	defer func() {
		cancel()
		<-ran
	}()

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	readLine(t, r)
	readLine(t, r)
	assert.Equal(t, ": keepalive", readLine(t, r))
}

func TestUnmarshalableEventIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New(zaptest.NewLogger(t))
	ran := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(ran)
	}()

	h.Broadcast(make(chan int))
	h.Broadcast("ok")
	cancel()
	<-ran
}
