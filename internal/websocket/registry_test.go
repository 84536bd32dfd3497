package websocket

import (
	"errors"
	"sync"
	"testing"
	"time"

	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSocket records writes and can be told to fail.
type fakeSocket struct {
	mu       sync.Mutex
	written  []interface{}
	failNext bool
	closed   bool
}

func (s *fakeSocket) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		return errors.New("broken pipe")
	}
	s.written = append(s.written, v)
	return nil
}

func (s *fakeSocket) SetWriteDeadline(t time.Time) error { return nil }

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSocket) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.written)
}

// fakeJobs counts session disconnect sweeps.
type fakeJobs struct {
	mu       sync.Mutex
	sessions []string
}

func (f *fakeJobs) MarkDisconnectedForSession(sessionID string) int {
	f.mu.Lock()
	f.sessions = append(f.sessions, sessionID)
	f.mu.Unlock()
	return 0
}

func newTestRegistry() (*Registry, *fakeJobs) {
	jobs := &fakeJobs{}
	return NewRegistry(jobs, logger.NewNopLogger(), nil), jobs
}

func TestRegistryBroadcastIsolatesFailedConnections(t *testing.T) {
	r, _ := newTestRegistry()

	good1 := &fakeSocket{}
	bad := &fakeSocket{failNext: true}
	good2 := &fakeSocket{}
	r.Connect(good1, "session-1")
	r.Connect(bad, "session-1")
	r.Connect(good2, "session-1")

	r.Broadcast(&dto.OutboundMessage{Type: "token", Content: "hi"}, "session-1")

	assert.Equal(t, 1, good1.writeCount())
	assert.Equal(t, 1, good2.writeCount())
	assert.Equal(t, 0, bad.writeCount())

	// The failed connection is evicted, the healthy ones stay.
	assert.Equal(t, 2, r.ConnectionCount("session-1"))
	assert.True(t, bad.closed)

	// The survivors keep receiving.
	r.Broadcast(&dto.OutboundMessage{Type: "token", Content: "again"}, "session-1")
	assert.Equal(t, 2, good1.writeCount())
	assert.Equal(t, 2, good2.writeCount())
}

func TestRegistryBroadcastToUnknownSessionIsNoop(t *testing.T) {
	r, _ := newTestRegistry()
	r.Broadcast(&dto.OutboundMessage{Type: "token"}, "nobody-home")
	assert.Equal(t, 0, r.SessionCount())
}

func TestRegistryDisconnectFlagsSessionJobs(t *testing.T) {
	r, jobs := newTestRegistry()

	sock := &fakeSocket{}
	conn := r.Connect(sock, "session-1")
	require.Equal(t, 1, r.SessionCount())

	r.Disconnect(conn, "session-1")

	assert.Equal(t, 0, r.SessionCount(), "empty session must be removed")
	require.Len(t, jobs.sessions, 1)
	assert.Equal(t, "session-1", jobs.sessions[0])
}

func TestRegistryDisconnectKeepsOtherConnections(t *testing.T) {
	r, _ := newTestRegistry()

	first := r.Connect(&fakeSocket{}, "session-1")
	r.Connect(&fakeSocket{}, "session-1")

	r.Disconnect(first, "session-1")

	assert.Equal(t, 1, r.ConnectionCount("session-1"))
	assert.Equal(t, 1, r.SessionCount())
}

func TestRegistrySweepEvictsExpiredConnections(t *testing.T) {
	r, jobs := newTestRegistry()
	r.connectionTTL = 5 * time.Millisecond

	sock := &fakeSocket{}
	r.Connect(sock, "session-1")
	time.Sleep(10 * time.Millisecond)

	r.cleanupExpired()

	assert.Equal(t, 0, r.SessionCount())
	assert.True(t, sock.closed)
	assert.Contains(t, jobs.sessions, "session-1")
}

func TestRegistrySweepKeepsFreshConnections(t *testing.T) {
	r, _ := newTestRegistry()

	r.Connect(&fakeSocket{}, "session-1")
	r.cleanupExpired()

	assert.Equal(t, 1, r.ConnectionCount("session-1"))
}

func TestConnectionSendAfterCloseIsDropped(t *testing.T) {
	sock := &fakeSocket{}
	conn := newConnection(sock)

	conn.markClosed()
	err := conn.Send(&dto.OutboundMessage{Type: "token"}, time.Second)

	assert.Error(t, err)
	assert.Equal(t, 0, sock.writeCount())
}

func TestConnectionWriteFailureMarksClosed(t *testing.T) {
	sock := &fakeSocket{failNext: true}
	conn := newConnection(sock)

	err := conn.Send(&dto.OutboundMessage{Type: "token"}, time.Second)

	assert.Error(t, err)
	assert.True(t, conn.isClosed())
}
