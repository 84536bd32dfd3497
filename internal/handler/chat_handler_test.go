// FILE: internal/handler/chat_handler_test.go
package handler

import (
	"sync"
	"testing"
	"time"

	"agent-chat-be/internal/pkg/logger"
	internalWS "agent-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSocket struct {
	mu            sync.Mutex
	written       []interface{}
	readDeadlines []time.Time
	failWrites    bool
	closed        bool
}

func (f *fakeSocket) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return assert.AnError
	}
	f.written = append(f.written, v)
	return nil
}

func (f *fakeSocket) SetWriteDeadline(t time.Time) error { return nil }

func (f *fakeSocket) SetReadDeadline(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readDeadlines = append(f.readDeadlines, t)
	return nil
}

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSocket) snapshot() (writes int, deadlines int, closed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written), len(f.readDeadlines), f.closed
}

type fakeJobs struct{}

func (fakeJobs) MarkDisconnectedForSession(string) int { return 0 }

func newKeepAliveFixture(pingPeriod time.Duration) (*ChatHandler, *fakeSocket, *internalWS.Connection) {
	h := NewChatHandler(nil, nil, nil, nil, nil, logger.NewNopLogger())
	h.pingPeriod = pingPeriod
	h.readWait = time.Minute

	registry := internalWS.NewRegistry(fakeJobs{}, logger.NewNopLogger(), nil)
	sock := &fakeSocket{}
	conn := registry.Connect(sock, "session-1")
	return h, sock, conn
}

// An idle but healthy peer must keep receiving pings with the read deadline
// pushed forward each time; the loop never depends on resuming a timed-out
// read.
func TestKeepAliveExtendsReadDeadlineWhilePingsSucceed(t *testing.T) {
	h, sock, conn := newKeepAliveFixture(5 * time.Millisecond)

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		h.keepAlive(sock, conn, done)
		close(finished)
	}()

	require.Eventually(t, func() bool {
		writes, deadlines, _ := sock.snapshot()
		return writes >= 3 && deadlines >= 3
	}, time.Second, time.Millisecond)

	close(done)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("keepalive did not stop after done")
	}

	_, _, closed := sock.snapshot()
	assert.False(t, closed, "healthy socket must stay open")
}

func TestKeepAliveClosesSocketWhenPingFails(t *testing.T) {
	h, sock, conn := newKeepAliveFixture(time.Millisecond)
	sock.failWrites = true

	done := make(chan struct{})
	defer close(done)

	finished := make(chan struct{})
	go func() {
		h.keepAlive(sock, conn, done)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("keepalive did not exit after a failed ping")
	}

	_, _, closed := sock.snapshot()
	assert.True(t, closed, "a failed ping must close the socket to unblock the reader")
}

func TestRegisterRoutesMountsChatWsPath(t *testing.T) {
	h := NewChatHandler(nil, nil, nil, nil, nil, logger.NewNopLogger())

	app := fiber.New()
	h.RegisterRoutes(app.Group("/api"))

	found := false
	for _, route := range app.GetRoutes() {
		if route.Method == fiber.MethodGet && route.Path == "/api/chat/ws" {
			found = true
		}
	}
	assert.True(t, found, "websocket endpoint must be mounted at /api/chat/ws")
}
