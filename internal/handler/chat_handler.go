// FILE: internal/handler/chat_handler.go
package handler

import (
	"context"
	"encoding/json"
	"time"

	"agent-chat-be/internal/chat"
	"agent-chat-be/internal/constant"
	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/pkg/logger"
	"agent-chat-be/internal/service"
	internalWS "agent-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ChatHandler owns the websocket endpoint: handshake auth, the receive loop
// with liveness pings, and dispatch to the job driver or history replay.
type ChatHandler struct {
	authService service.IAuthService
	chatService service.IChatService
	driver      *chat.Driver
	registry    *internalWS.Registry
	jobs        *chat.JobRegistry
	logger      logger.ILogger

	readWait   time.Duration
	pingPeriod time.Duration
}

// readableSocket is the slice of *websocket.Conn the keepalive loop touches.
type readableSocket interface {
	SetReadDeadline(t time.Time) error
	Close() error
}

func NewChatHandler(
	authService service.IAuthService,
	chatService service.IChatService,
	driver *chat.Driver,
	registry *internalWS.Registry,
	jobs *chat.JobRegistry,
	log logger.ILogger,
) *ChatHandler {
	return &ChatHandler{
		authService: authService,
		chatService: chatService,
		driver:      driver,
		registry:    registry,
		jobs:        jobs,
		logger:      log,
		readWait:    constant.ReceiveWaitTimeout,
		pingPeriod:  constant.PingPeriod,
	}
}

// RegisterRoutes mounts the websocket endpoint. Auth happens inside ServeWs
// because the token arrives as a query param, not through JwtMiddleware.
func (h *ChatHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/chat/ws", h.ServeWs)
}

// ServeWs authenticates the handshake and hands the upgraded socket to the
// receive loop. Browsers cannot set headers on websocket requests, so the
// token rides a query param, with an Authorization header fallback for
// tooling.
func (h *ChatHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	profileID, err := h.authService.VerifyToken(tokenStr)
	if err != nil {
		h.logger.Warn("ChatHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("ChatHandler", "Starting WebSocket session", map[string]interface{}{"profile_id": profileID})
			h.serve(conn, profileID)
			h.logger.Info("ChatHandler", "WebSocket session ended", map[string]interface{}{"profile_id": profileID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// serve runs the receive loop for one socket until the client disconnects.
// A read error on this socket library is permanent, so the loop never tries
// to resume reading after a deadline fires. Liveness comes from the
// keepalive goroutine instead: every ping period it probes the peer and, on
// success, pushes the read deadline forward; a failed probe closes the
// socket, which surfaces here as a read error.
func (h *ChatHandler) serve(sock *websocket.Conn, profileID uuid.UUID) {
	sessionID := profileID.String()
	conn := h.registry.Connect(sock, sessionID)

	done := make(chan struct{})
	defer func() {
		close(done)
		// Defense in depth: flag jobs first, then drop the connection.
		// Registry.Disconnect flags them too, but only if this connection
		// is still the one it tracks.
		h.jobs.MarkDisconnectedForSession(sessionID)
		h.registry.Disconnect(conn, sessionID)
	}()

	_ = sock.SetReadDeadline(time.Now().Add(h.readWait))
	go h.keepAlive(sock, conn, done)

	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			// Close frames, hard transport errors and an expired deadline
			// all end the session.
			return
		}
		_ = sock.SetReadDeadline(time.Now().Add(h.readWait))

		var inbound dto.InboundMessage
		if err := json.Unmarshal(data, &inbound); err != nil {
			_ = conn.Send(dto.NewErrorMessage("Invalid message format"), constant.PingWriteTimeout)
			continue
		}

		switch inbound.Type {
		case constant.MessageTypeHistory:
			h.handleHistory(conn, &inbound, profileID, sessionID)
		case constant.MessageTypeMessage:
			h.handleMessage(conn, &inbound, profileID, sessionID)
		default:
			_ = conn.Send(dto.NewErrorMessage("Unknown message type"), constant.PingWriteTimeout)
		}
	}
}

// keepAlive probes a quiet peer once per ping period. A ping that is
// written successfully extends the read deadline, so an idle but healthy
// connection never times out; a ping that cannot be written closes the
// socket to unblock the receive loop.
func (h *ChatHandler) keepAlive(sock readableSocket, conn *internalWS.Connection, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.Send(dto.NewPingMessage(), constant.PingWriteTimeout); err != nil {
				_ = sock.Close()
				return
			}
			_ = sock.SetReadDeadline(time.Now().Add(h.readWait))
		}
	}
}

// handleHistory replays the thread synchronously through the session's
// broadcast path. No job is involved.
func (h *ChatHandler) handleHistory(conn *internalWS.Connection, inbound *dto.InboundMessage, profileID uuid.UUID, sessionID string) {
	threadID, err := uuid.Parse(inbound.ThreadId)
	if err != nil {
		_ = conn.Send(dto.NewErrorMessage("Invalid thread_id"), constant.PingWriteTimeout)
		return
	}

	history, err := h.chatService.GetThreadHistory(context.Background(), profileID, threadID)
	if err != nil {
		if err == service.ErrThreadNotFound {
			_ = conn.Send(dto.NewErrorMessage("Thread not found"), constant.PingWriteTimeout)
			return
		}
		h.logger.Error("ChatHandler", "History lookup failed", map[string]interface{}{
			"thread_id": threadID,
			"error":     err.Error(),
		})
		_ = conn.Send(dto.NewErrorMessage("Failed to load history"), constant.PingWriteTimeout)
		return
	}

	for _, msg := range history {
		h.registry.Broadcast(msg, sessionID)
	}
}

// handleMessage validates the frame and drives the job synchronously; at
// most one job runs per receive loop by construction.
func (h *ChatHandler) handleMessage(conn *internalWS.Connection, inbound *dto.InboundMessage, profileID uuid.UUID, sessionID string) {
	threadID, err := uuid.Parse(inbound.ThreadId)
	if err != nil {
		_ = conn.Send(dto.NewErrorMessage("Invalid thread_id"), constant.PingWriteTimeout)
		return
	}
	if inbound.Content == "" {
		_ = conn.Send(dto.NewErrorMessage("Message content is required"), constant.PingWriteTimeout)
		return
	}

	var agentID *uuid.UUID
	if inbound.AgentId != "" {
		parsed, err := uuid.Parse(inbound.AgentId)
		if err != nil {
			_ = conn.Send(dto.NewErrorMessage("Invalid agent_id"), constant.PingWriteTimeout)
			return
		}
		agentID = &parsed
	}

	req := &dto.ChatRequest{
		ThreadId:  threadID,
		AgentId:   agentID,
		ProfileId: profileID,
		SessionId: sessionID,
		Content:   inbound.Content,
	}
	if err := h.driver.RunJob(context.Background(), req); err != nil {
		h.logger.Error("ChatHandler", "Failed to accept chat message", map[string]interface{}{
			"thread_id": threadID,
			"error":     err.Error(),
		})
		_ = conn.Send(dto.NewErrorMessage("Failed to process message"), constant.PingWriteTimeout)
	}
}
