package websocket

import (
	"sync"
	"time"
)

// Socket is the slice of *websocket.Conn the registry needs. Kept as an
// interface so tests can register fake transports.
type Socket interface {
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Connection wraps one physical websocket. It is owned by the Registry; the
// closed flag has a single point of truth behind the connection's own mutex.
type Connection struct {
	sock      Socket
	createdAt time.Time

	mu     sync.Mutex // serializes writes; websocket writes are not concurrency safe
	closed bool
}

func newConnection(sock Socket) *Connection {
	return &Connection{
		sock:      sock,
		createdAt: time.Now(),
	}
}

// Send writes one JSON message with a bounded deadline. Any failure marks
// the connection closed; a closed connection silently drops sends.
func (c *Connection) Send(v interface{}, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errConnectionClosed
	}
	_ = c.sock.SetWriteDeadline(time.Now().Add(timeout))
	if err := c.sock.WriteJSON(v); err != nil {
		c.closed = true
		return err
	}
	return nil
}

// markClosed flips the closed flag. One-way, never reset.
func (c *Connection) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Connection) age() time.Duration {
	return time.Since(c.createdAt)
}

// close marks the connection closed and closes the underlying socket.
func (c *Connection) close() {
	c.markClosed()
	_ = c.sock.Close()
}
