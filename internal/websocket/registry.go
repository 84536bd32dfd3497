package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"agent-chat-be/internal/constant"
	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var errConnectionClosed = errors.New("connection closed")

// redisChannel carries session-targeted messages between instances.
const redisChannel = "chat_ws_events"

// JobDisconnector lets the registry flag running jobs when a session loses
// its transport. Implemented by chat.JobRegistry.
type JobDisconnector interface {
	MarkDisconnectedForSession(sessionID string) int
}

// Registry tracks live websocket connections per logical session id. A
// session may span multiple physical connections (several tabs). All map
// access goes through registry methods.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string][]*Connection

	jobs   JobDisconnector
	logger logger.ILogger

	// Optional cross-instance fan-out.
	rdb        *redis.Client
	instanceID string

	startMu sync.Mutex
	started bool

	sendTimeout   time.Duration
	connectionTTL time.Duration
	sweepInterval time.Duration
}

func NewRegistry(jobs JobDisconnector, log logger.ILogger, rdb *redis.Client) *Registry {
	return &Registry{
		sessions:      make(map[string][]*Connection),
		jobs:          jobs,
		logger:        log,
		rdb:           rdb,
		instanceID:    uuid.NewString(),
		sendTimeout:   constant.PingWriteTimeout,
		connectionTTL: constant.ConnectionTTL,
		sweepInterval: constant.CleanupSweepEvery,
	}
}

// Connect registers a new connection under the session id, creating the
// session entry if absent.
func (r *Registry) Connect(sock Socket, sessionID string) *Connection {
	conn := newConnection(sock)

	r.mu.Lock()
	r.sessions[sessionID] = append(r.sessions[sessionID], conn)
	total := len(r.sessions[sessionID])
	r.mu.Unlock()

	r.logger.Info("SessionRegistry", "Connection registered", map[string]interface{}{
		"session_id":  sessionID,
		"connections": total,
	})
	return conn
}

// Disconnect marks the connection closed, drops it from the session set and
// removes the session when the set becomes empty. It is the sole path by
// which job connection-liveness degrades due to transport loss, so it always
// flags the session's jobs as disconnected.
func (r *Registry) Disconnect(conn *Connection, sessionID string) {
	conn.markClosed()

	r.mu.Lock()
	conns := r.sessions[sessionID]
	kept := conns[:0]
	for _, c := range conns {
		if c != conn {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(r.sessions, sessionID)
	} else {
		r.sessions[sessionID] = kept
	}
	remaining := len(kept)
	r.mu.Unlock()

	flagged := 0
	if r.jobs != nil {
		flagged = r.jobs.MarkDisconnectedForSession(sessionID)
	}
	r.logger.Info("SessionRegistry", "Connection disconnected", map[string]interface{}{
		"session_id":   sessionID,
		"remaining":    remaining,
		"jobs_flagged": flagged,
	})
}

// Broadcast sends one message to every live connection in the session,
// best-effort. Failed connections are collected during iteration and evicted
// afterwards; transport errors never propagate to the caller.
func (r *Registry) Broadcast(msg *dto.OutboundMessage, sessionID string) {
	r.deliverLocal(msg, sessionID)
	r.publishRemote(msg, sessionID)
}

func (r *Registry) BroadcastError(text, sessionID string) {
	r.Broadcast(dto.NewErrorMessage(text), sessionID)
}

func (r *Registry) deliverLocal(msg *dto.OutboundMessage, sessionID string) {
	r.mu.RLock()
	conns := make([]*Connection, len(r.sessions[sessionID]))
	copy(conns, r.sessions[sessionID])
	r.mu.RUnlock()

	var failed []*Connection
	for _, c := range conns {
		if err := c.Send(msg, r.sendTimeout); err != nil {
			failed = append(failed, c)
		}
	}
	if len(failed) == 0 {
		return
	}

	r.mu.Lock()
	kept := r.sessions[sessionID][:0]
	for _, c := range r.sessions[sessionID] {
		evicted := false
		for _, f := range failed {
			if c == f {
				evicted = true
				break
			}
		}
		if !evicted {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(r.sessions, sessionID)
	} else {
		r.sessions[sessionID] = kept
	}
	r.mu.Unlock()

	for _, c := range failed {
		c.close()
	}
	r.logger.Warn("SessionRegistry", "Evicted failed connections after broadcast", map[string]interface{}{
		"session_id": sessionID,
		"evicted":    len(failed),
	})
}

// Start runs the periodic TTL sweep and, when Redis is configured, the
// cross-instance subscriber. Guarded against double start; stops when ctx is
// cancelled. Must not block the caller.
func (r *Registry) Start(ctx context.Context) {
	r.startMu.Lock()
	if r.started {
		r.startMu.Unlock()
		r.logger.Warn("SessionRegistry", "Start called twice, ignoring", nil)
		return
	}
	r.started = true
	r.startMu.Unlock()

	go r.sweepLoop(ctx)
	if r.rdb != nil {
		go r.subscribeLoop(ctx)
	}
}

func (r *Registry) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cleanupExpired()
		}
	}
}

// cleanupExpired closes and drops connections past their TTL or already
// marked closed, and removes sessions left with no connections.
func (r *Registry) cleanupExpired() {
	var expired []*Connection
	var emptied []string

	r.mu.Lock()
	for sessionID, conns := range r.sessions {
		kept := conns[:0]
		for _, c := range conns {
			if c.isClosed() || c.age() > r.connectionTTL {
				expired = append(expired, c)
			} else {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			delete(r.sessions, sessionID)
			emptied = append(emptied, sessionID)
		} else {
			r.sessions[sessionID] = kept
		}
	}
	r.mu.Unlock()

	for _, c := range expired {
		c.close()
	}
	// Sessions that lost their last connection cannot receive anything any
	// more; their jobs should stop queueing output.
	if r.jobs != nil {
		for _, sessionID := range emptied {
			r.jobs.MarkDisconnectedForSession(sessionID)
		}
	}
	if len(expired) > 0 {
		r.logger.Info("SessionRegistry", "Swept expired connections", map[string]interface{}{
			"count": len(expired),
		})
	}
}

// SessionCount reports the number of live sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ConnectionCount reports the number of live connections for a session.
func (r *Registry) ConnectionCount(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[sessionID])
}

// --- Redis cross-instance fan-out ---

type fanoutPayload struct {
	InstanceID string               `json:"instance_id"`
	SessionID  string               `json:"session_id"`
	Message    *dto.OutboundMessage `json:"message"`
}

func (r *Registry) publishRemote(msg *dto.OutboundMessage, sessionID string) {
	if r.rdb == nil {
		return
	}
	payload, err := json.Marshal(fanoutPayload{
		InstanceID: r.instanceID,
		SessionID:  sessionID,
		Message:    msg,
	})
	if err != nil {
		return
	}
	if err := r.rdb.Publish(context.Background(), redisChannel, payload).Err(); err != nil {
		r.logger.Warn("SessionRegistry", "Redis publish failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (r *Registry) subscribeLoop(ctx context.Context) {
	pubsub := r.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload fanoutPayload
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				r.logger.Warn("SessionRegistry", "Malformed fan-out payload", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			// Skip our own publishes; local delivery already happened.
			if payload.InstanceID == r.instanceID || payload.Message == nil {
				continue
			}
			r.deliverLocal(payload.Message, payload.SessionID)
		}
	}
}
