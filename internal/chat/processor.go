package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agent-chat-be/internal/constant"
	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/entity"
	"agent-chat-be/internal/pkg/logger"
	"agent-chat-be/internal/repository/contract"
	"agent-chat-be/internal/repository/specification"
	"agent-chat-be/pkg/workflow"

	"github.com/google/uuid"
)

// Processor translates one job's workflow event stream into persisted step
// records and display messages on the job's output queue. One instance per
// job, single consumer, events handled strictly in arrival order.
type Processor struct {
	jobID     uuid.UUID
	threadID  uuid.UUID
	agentID   *uuid.UUID
	profileID uuid.UUID

	queue    chan<- *dto.OutboundMessage
	registry *JobRegistry
	steps    contract.StepRepository
	jobs     contract.JobRepository
	logger   logger.ILogger

	sendTimeout time.Duration

	// Streaming state. tokenBuffer holds not-yet-persisted token text; it is
	// flushed on tool/step/result/end boundaries and cleared after every
	// flush so the same content is never written twice.
	tokenBuffer    string
	currentContent string
	results        []*dto.OutboundMessage
	endSeen        bool
	connActive     bool
}

func NewProcessor(
	jobID, threadID uuid.UUID,
	agentID *uuid.UUID,
	profileID uuid.UUID,
	queue chan<- *dto.OutboundMessage,
	registry *JobRegistry,
	steps contract.StepRepository,
	jobs contract.JobRepository,
	log logger.ILogger,
) *Processor {
	return &Processor{
		jobID:       jobID,
		threadID:    threadID,
		agentID:     agentID,
		profileID:   profileID,
		queue:       queue,
		registry:    registry,
		steps:       steps,
		jobs:        jobs,
		logger:      log,
		sendTimeout: constant.QueueSendTimeout,
		connActive:  true,
	}
}

// HandleEvent processes one stream event. Persistence failures on
// user-visible content (tool records, results, final flushes) are returned;
// everything transport-side is swallowed after flipping the connection flag.
func (p *Processor) HandleEvent(ctx context.Context, ev workflow.Event) error {
	switch ev.Kind {
	case workflow.KindToken:
		return p.handleToken(ev)
	case workflow.KindTool:
		return p.handleTool(ctx, ev)
	case workflow.KindStep:
		return p.handleStep(ctx, ev)
	case workflow.KindResult:
		return p.handleResult(ctx, ev)
	case workflow.KindEnd:
		return p.handleEnd(ctx)
	default:
		p.logger.Debug("Processor", "Unknown event kind", map[string]interface{}{
			"job_id": p.jobID,
			"kind":   int(ev.Kind),
		})
		return nil
	}
}

func (p *Processor) handleToken(ev workflow.Event) error {
	// Empty tokens arriving after the buffer was already flushed into a
	// final message are stale planning output; resurrecting them would
	// clobber the terminal state.
	if ev.Content == "" && p.tokenBuffer == "" && p.currentContent != "" {
		return nil
	}

	p.tokenBuffer += ev.Content

	status := ev.Status
	if status == "" {
		status = constant.StatusProcessing
	}
	p.forward(p.displayMessage(constant.MessageTypeToken, status, ev.Content))
	return nil
}

func (p *Processor) handleTool(ctx context.Context, ev workflow.Event) error {
	if err := p.flushBuffer(ctx); err != nil {
		return err
	}

	status := constant.StatusProcessing // tool start
	if ev.ToolOutput != "" {
		status = constant.StatusComplete // tool end
	}
	if strings.Contains(ev.Status, "error") {
		status = constant.StatusError
	}

	persistErr := p.persistStep(ctx, &entity.Step{
		Status:     status,
		Tool:       ev.Tool,
		ToolInput:  ev.ToolInput,
		ToolOutput: ev.ToolOutput,
	})

	// Display is best-effort and happens regardless of the persistence
	// outcome; losing the persisted tool-call record is not acceptable, so
	// that error still propagates.
	msg := p.displayMessage(constant.MessageTypeTool, status, "")
	msg.Tool = ev.Tool
	msg.ToolInput = ev.ToolInput
	msg.ToolOutput = ev.ToolOutput
	p.forward(msg)

	if persistErr != nil {
		return fmt.Errorf("persist tool step for job %s: %w", p.jobID, persistErr)
	}
	return nil
}

func (p *Processor) handleStep(ctx context.Context, ev workflow.Event) error {
	// Step events are a flush boundary just like tool events; buffered text
	// that streamed before the planning step must land in storage first so
	// replay keeps the original order.
	if err := p.flushBuffer(ctx); err != nil {
		return err
	}

	if err := p.persistStep(ctx, &entity.Step{
		Status:  constant.StatusPlanning,
		Content: ev.Content,
		Thought: constant.PlanningThoughtMarker,
	}); err != nil {
		// Planning records are not user-visible content; log and move on.
		p.logger.Error("Processor", "Failed to persist planning step", map[string]interface{}{
			"job_id": p.jobID,
			"error":  err.Error(),
		})
	}

	msg := p.displayMessage(constant.MessageTypeStep, constant.StatusPlanning, ev.Content)
	msg.Thought = ev.Thought
	msg.PlanningOnly = true
	p.forward(msg)
	return nil
}

func (p *Processor) handleResult(ctx context.Context, ev workflow.Event) error {
	if ev.Content == p.currentContent {
		return nil
	}
	p.currentContent = ev.Content

	persistErr := p.persistStep(ctx, &entity.Step{
		Status:  constant.StatusComplete,
		Content: ev.Content,
	})

	// The result supersedes any buffered partial text; clearing here keeps
	// a later end event from re-flushing it.
	p.tokenBuffer = ""

	msg := p.displayMessage(constant.MessageTypeToken, constant.StatusComplete, ev.Content)
	p.results = append(p.results, msg)
	p.forward(msg)

	if persistErr != nil {
		return fmt.Errorf("persist result step for job %s (content length %d): %w",
			p.jobID, len(ev.Content), persistErr)
	}
	return nil
}

// handleEnd treats only the first end event as a flush point. Some
// workflows emit more than one end per job; each later one just forwards a
// terminal empty token so the client sees the stream close. Compatibility
// quirk, deliberately preserved.
func (p *Processor) handleEnd(ctx context.Context) error {
	if p.endSeen {
		p.forward(p.displayMessage(constant.MessageTypeToken, constant.StatusComplete, ""))
		return nil
	}
	p.endSeen = true

	if p.tokenBuffer != "" && p.currentContent == "" {
		buffered := p.tokenBuffer
		if err := p.persistStep(ctx, &entity.Step{
			Status:  constant.StatusComplete,
			Content: buffered,
		}); err != nil {
			return fmt.Errorf("persist final flush for job %s (content length %d): %w",
				p.jobID, len(buffered), err)
		}
		p.currentContent = buffered
		p.tokenBuffer = ""
	}
	return nil
}

// flushBuffer persists buffered token text as a completed step and clears
// the buffer. No tool fields; the flush precedes the tool record.
func (p *Processor) flushBuffer(ctx context.Context) error {
	if p.tokenBuffer == "" {
		return nil
	}
	buffered := p.tokenBuffer
	if err := p.persistStep(ctx, &entity.Step{
		Status:  constant.StatusProcessing,
		Content: buffered,
	}); err != nil {
		return fmt.Errorf("flush token buffer for job %s (content length %d): %w",
			p.jobID, len(buffered), err)
	}
	p.tokenBuffer = ""
	return nil
}

func (p *Processor) persistStep(ctx context.Context, step *entity.Step) error {
	step.Id = uuid.New()
	step.JobId = p.jobID
	step.ThreadId = p.threadID
	step.AgentId = p.agentID
	step.ProfileId = p.profileID
	step.Role = constant.ChatRoleAssistant
	step.CreatedAt = time.Now()
	return p.steps.Create(ctx, step)
}

func (p *Processor) displayMessage(msgType, status, content string) *dto.OutboundMessage {
	now := time.Now()
	msg := &dto.OutboundMessage{
		Type:      msgType,
		Status:    status,
		Content:   content,
		Role:      constant.ChatRoleAssistant,
		ThreadId:  p.threadID.String(),
		CreatedAt: &now,
	}
	if p.agentID != nil {
		msg.AgentId = p.agentID.String()
	}
	return msg
}

// forward pushes a display message onto the job queue, bounded by the send
// timeout. Skipping a disconnected job is expected steady-state; a timeout
// flips both the local and registry connection flags for good.
func (p *Processor) forward(msg *dto.OutboundMessage) {
	if !p.connActive {
		return
	}
	if !p.registry.IsConnectionActive(p.jobID) {
		p.connActive = false
		return
	}
	select {
	case p.queue <- msg:
	case <-time.After(p.sendTimeout):
		p.connActive = false
		p.registry.MarkDisconnected(p.jobID)
		p.logger.Warn("Processor", "Queue send timed out, treating connection as dead", map[string]interface{}{
			"job_id": p.jobID,
		})
	}
}

// Finalize resolves the best-available final text for the job and writes it
// to the job's persisted record. A job always reaches a terminal persisted
// state, even with empty content.
func (p *Processor) Finalize(ctx context.Context, failed bool) error {
	final := p.currentContent

	if final == "" {
		// Newest in-memory result that is real assistant output.
		for i := len(p.results) - 1; i >= 0; i-- {
			m := p.results[i]
			if m.Type != constant.MessageTypeStep && m.Status != constant.StatusPlanning && m.Content != "" {
				final = m.Content
				break
			}
		}
	}

	if final == "" {
		step, err := p.steps.FindOne(ctx,
			specification.ByJobID{JobID: p.jobID},
			specification.StatusEquals{Status: constant.StatusComplete},
			specification.NonEmptyContent{},
			specification.WithoutTool{},
			specification.ThoughtNot{Marker: constant.PlanningThoughtMarker},
			specification.OrderBy{Field: "created_at", Desc: true},
		)
		if err != nil {
			p.logger.Error("Processor", "Failed to look up persisted steps during finalization", map[string]interface{}{
				"job_id": p.jobID,
				"error":  err.Error(),
			})
		} else if step != nil {
			final = step.Content
		}
	}

	status := constant.JobStatusComplete
	if failed {
		status = constant.JobStatusFailed
	}

	job, err := p.jobs.FindOne(ctx, specification.ByID{ID: p.jobID})
	if err != nil || job == nil {
		// Fall back to the fields we know; the terminal write must happen.
		job = &entity.Job{
			Id:        p.jobID,
			ThreadId:  p.threadID,
			AgentId:   p.agentID,
			ProfileId: p.profileID,
		}
	}
	job.Result = final
	job.Status = status
	if err := p.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("finalize job %s (content length %d): %w", p.jobID, len(final), err)
	}
	return nil
}
