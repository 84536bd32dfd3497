package chat

import (
	"context"
	"fmt"
	"time"

	"agent-chat-be/internal/constant"
	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/entity"
	"agent-chat-be/internal/pkg/logger"
	"agent-chat-be/internal/repository/specification"
	"agent-chat-be/internal/repository/unitofwork"
	"agent-chat-be/pkg/events"
	"agent-chat-be/pkg/workflow"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Broadcaster is the slice of the session registry the driver needs to relay
// queue items to the transport layer.
type Broadcaster interface {
	Broadcast(msg *dto.OutboundMessage, sessionID string)
	BroadcastError(text, sessionID string)
}

// Driver orchestrates one chat job end to end: persisted job record,
// background streaming producer, queue pump into the transport, and
// finalization plus registry cleanup on every exit path.
type Driver struct {
	registry   *JobRegistry
	sessions   Broadcaster
	uowFactory unitofwork.RepositoryFactory
	engine     workflow.Engine
	dispatcher events.Dispatcher
	agentCache *cache.Cache
	logger     logger.ILogger

	queueSize   int
	pollTimeout time.Duration
}

func NewDriver(
	registry *JobRegistry,
	sessions Broadcaster,
	uowFactory unitofwork.RepositoryFactory,
	engine workflow.Engine,
	dispatcher events.Dispatcher,
	log logger.ILogger,
) *Driver {
	return &Driver{
		registry:    registry,
		sessions:    sessions,
		uowFactory:  uowFactory,
		engine:      engine,
		dispatcher:  dispatcher,
		agentCache:  cache.New(constant.AgentCacheTTL, constant.AgentCachePurge),
		logger:      log,
		queueSize:   constant.DefaultQueueSize,
		pollTimeout: constant.QueuePollTimeout,
	}
}

// SetQueueSize overrides the per-job delivery queue capacity. Values of
// zero or less are ignored.
func (d *Driver) SetQueueSize(n int) {
	if n > 0 {
		d.queueSize = n
	}
}

// RunJob drives one accepted chat message to its terminal persisted state.
// It returns an error only when the job could not be accepted at all; once
// the job record exists, all downstream failures are logged and absorbed so
// the registry entry never leaks.
func (d *Driver) RunJob(ctx context.Context, req *dto.ChatRequest) error {
	uow := d.uowFactory.NewUnitOfWork(ctx)
	jobs := uow.JobRepository()
	steps := uow.StepRepository()

	job := &entity.Job{
		Id:        uuid.New(),
		ThreadId:  req.ThreadId,
		AgentId:   req.AgentId,
		ProfileId: req.ProfileId,
		Input:     req.Content,
		Status:    constant.JobStatusRunning,
		CreatedAt: time.Now(),
	}
	if err := jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("create job record: %w", err)
	}

	queue := make(chan *dto.OutboundMessage, d.queueSize)
	d.registry.Register(job.Id, req.ThreadId, req.AgentId, req.SessionId, queue)
	// Hard cleanup guarantee: the job leaves the registry on every exit
	// path, including panics during finalization.
	defer d.registry.Remove(job.Id)

	proc := NewProcessor(job.Id, req.ThreadId, req.AgentId, req.ProfileId,
		queue, d.registry, steps, jobs, d.logger)

	d.dispatch(events.NewJobEvent(constant.EventJobStarted, job.Id, req.ThreadId, nil))

	var producerErr error
	go func() {
		defer close(queue)
		producerErr = d.produce(proc, req)
	}()
	d.registry.AttachTask(job.Id)

	d.pump(job.Id, req.SessionId, queue)

	// The producer closed the queue before the pump saw it drain, so
	// producerErr is settled here.
	if producerErr != nil {
		d.logger.Error("JobDriver", "Workflow producer failed", map[string]interface{}{
			"job_id":    job.Id,
			"thread_id": req.ThreadId,
			"error":     producerErr.Error(),
		})
		d.sessions.BroadcastError("Failed to process message", req.SessionId)
	}

	// Finalization errors are logged, never re-raised past this boundary; a
	// stuck registry entry would leak indefinitely.
	finalCtx := context.Background()
	if err := proc.Finalize(finalCtx, producerErr != nil); err != nil {
		d.logger.Error("JobDriver", "Job finalization failed", map[string]interface{}{
			"job_id": job.Id,
			"error":  err.Error(),
		})
	}

	eventType := constant.EventJobCompleted
	if producerErr != nil {
		eventType = constant.EventJobFailed
	}
	d.dispatch(events.NewJobEvent(eventType, job.Id, req.ThreadId, nil))
	return nil
}

// pump relays queue items to the session until the producer closes the
// queue. Every wait is bounded; messages for disconnected jobs are dropped
// without stopping the loop, since persistence happens upstream.
func (d *Driver) pump(jobID uuid.UUID, sessionID string, queue <-chan *dto.OutboundMessage) {
	for {
		select {
		case msg, ok := <-queue:
			if !ok {
				return // producer finished, drain complete
			}
			if d.registry.IsConnectionActive(jobID) {
				d.sessions.Broadcast(msg, sessionID)
			}
		case <-time.After(d.pollTimeout):
			if !d.registry.Exists(jobID) {
				// Implicit completion, not an error.
				return
			}
		}
	}
}

// produce resolves the agent context and feeds the engine's event stream
// into the processor. It deliberately runs on a background context: a
// disconnected client still gets its answer written to storage, and only
// process shutdown abandons in-flight jobs.
func (d *Driver) produce(proc *Processor, req *dto.ChatRequest) error {
	ctx := context.Background()
	uow := d.uowFactory.NewUnitOfWork(ctx)

	persona, collections, tools := d.resolveAgent(ctx, uow, req.AgentId)

	history, err := d.loadHistory(ctx, uow, req.ThreadId, proc.jobID)
	if err != nil {
		d.logger.Warn("JobDriver", "Failed to load thread history, continuing without", map[string]interface{}{
			"thread_id": req.ThreadId,
			"error":     err.Error(),
		})
	}

	stream, err := d.engine.Stream(ctx, workflow.Request{
		History:              history,
		Input:                req.Content,
		PersonaPrompt:        persona,
		Tools:                tools,
		KnowledgeCollections: collections,
	})
	if err != nil {
		return fmt.Errorf("start workflow stream: %w", err)
	}

	for ev := range stream {
		if err := proc.HandleEvent(ctx, ev); err != nil {
			return fmt.Errorf("process %s event: %w", ev.Kind, err)
		}
	}
	return nil
}

// resolveAgent returns the persona prompt, knowledge collections and tool
// names for the job's agent, falling back to defaults when the agent is
// absent or incompletely configured. Lookups are cached.
func (d *Driver) resolveAgent(ctx context.Context, uow unitofwork.UnitOfWork, agentID *uuid.UUID) (string, []string, []string) {
	if agentID == nil {
		return constant.DefaultPersonaPrompt, constant.DefaultKnowledgeCollections, nil
	}

	var agent *entity.Agent
	if cached, found := d.agentCache.Get(agentID.String()); found {
		agent = cached.(*entity.Agent)
	} else {
		found, err := uow.AgentRepository().FindOne(ctx, specification.ByID{ID: *agentID})
		if err != nil {
			d.logger.Warn("JobDriver", "Agent lookup failed, using default persona", map[string]interface{}{
				"agent_id": agentID,
				"error":    err.Error(),
			})
		}
		agent = found
		if agent != nil {
			d.agentCache.Set(agentID.String(), agent, cache.DefaultExpiration)
		}
	}

	if agent == nil {
		return constant.DefaultPersonaPrompt, constant.DefaultKnowledgeCollections, nil
	}

	persona := agent.PersonaPrompt
	if persona == "" {
		persona = constant.DefaultPersonaPrompt
	}
	collections := agent.Config.KnowledgeCollections
	if len(collections) == 0 {
		collections = constant.DefaultKnowledgeCollections
	}
	return persona, collections, agent.Config.Tools
}

// loadHistory rebuilds the conversation from the thread's prior jobs. The
// in-flight job is already persisted at this point, so it is skipped; its
// input travels separately as the request.
func (d *Driver) loadHistory(ctx context.Context, uow unitofwork.UnitOfWork, threadID, currentJobID uuid.UUID) ([]workflow.Message, error) {
	prior, err := uow.JobRepository().FindAll(ctx,
		specification.ByThreadID{ThreadID: threadID},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	history := make([]workflow.Message, 0, len(prior)*2)
	for _, j := range prior {
		if j.Id == currentJobID {
			continue
		}
		history = append(history, workflow.Message{Role: constant.ChatRoleUser, Content: j.Input})
		if j.Result != "" {
			history = append(history, workflow.Message{Role: constant.ChatRoleAssistant, Content: j.Result})
		}
	}
	return history, nil
}

func (d *Driver) dispatch(event events.BaseEvent) {
	if d.dispatcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.dispatcher.Dispatch(ctx, event); err != nil {
		d.logger.Warn("JobDriver", "Event dispatch failed", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}
