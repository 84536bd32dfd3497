package constant

import "time"

// Message roles stored on steps and replayed in history.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// Step / stream statuses.
const (
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusPlanning   = "planning"
	StatusError      = "error"
)

// Outbound / inbound websocket message types.
const (
	MessageTypePing    = "ping"
	MessageTypeError   = "error"
	MessageTypeToken   = "token"
	MessageTypeStep    = "step"
	MessageTypeTool    = "tool"
	MessageTypeUser    = "user"
	MessageTypeHistory = "history"
	MessageTypeMessage = "message"
)

// PlanningThoughtMarker is stored in a step's thought field for planning
// steps so history replay and final-result resolution can tell them apart
// from real assistant output.
const PlanningThoughtMarker = "Planning Step"

// DefaultPersonaPrompt is used when a chat message arrives without an agent,
// or the agent has no persona configured.
const DefaultPersonaPrompt = "You are a helpful assistant for DAO operators. " +
	"Answer questions about treasury state, proposals and agent activity " +
	"concisely and accurately."

// Default knowledge collections consulted when the agent config does not
// name its own.
var DefaultKnowledgeCollections = []string{"knowledge_collection", "dao_collection"}

// Job statuses persisted on the jobs table.
const (
	JobStatusPending  = "pending"
	JobStatusRunning  = "running"
	JobStatusComplete = "complete"
	JobStatusFailed   = "failed"
)

// Timing defaults for the chat core. Overridable through config.
const (
	QueuePollTimeout   = 1 * time.Second
	QueueSendTimeout   = 1 * time.Second
	ReceiveWaitTimeout = 60 * time.Second
	PingPeriod         = (ReceiveWaitTimeout * 9) / 10
	PingWriteTimeout   = 5 * time.Second
	ConnectionTTL      = 3600 * time.Second
	CleanupSweepEvery  = 60 * time.Second
	DefaultQueueSize   = 100
	AgentCacheTTL      = 5 * time.Minute
	AgentCachePurge    = 10 * time.Minute
)

// Job lifecycle event types published on the event bus.
const (
	EventJobStarted   = "CHAT_JOB_STARTED"
	EventJobCompleted = "CHAT_JOB_COMPLETED"
	EventJobFailed    = "CHAT_JOB_FAILED"
)
