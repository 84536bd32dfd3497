package chat

import (
	"context"
	"testing"
	"time"

	"agent-chat-be/internal/constant"
	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/pkg/logger"
	"agent-chat-be/pkg/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type processorFixture struct {
	proc     *Processor
	registry *JobRegistry
	steps    *memStepRepo
	jobs     *memJobRepo
	queue    chan *dto.OutboundMessage
	jobID    uuid.UUID
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()

	registry := NewJobRegistry(logger.NewNopLogger())
	steps := &memStepRepo{}
	jobs := newMemJobRepo()
	queue := make(chan *dto.OutboundMessage, 100)

	jobID := uuid.New()
	threadID := uuid.New()
	registry.Register(jobID, threadID, nil, "session-1", queue)
	registry.AttachTask(jobID)

	proc := NewProcessor(jobID, threadID, nil, uuid.New(), queue, registry, steps, jobs, logger.NewNopLogger())
	return &processorFixture{
		proc:     proc,
		registry: registry,
		steps:    steps,
		jobs:     jobs,
		queue:    queue,
		jobID:    jobID,
	}
}

func (f *processorFixture) drain() []*dto.OutboundMessage {
	var out []*dto.OutboundMessage
	for {
		select {
		case msg := <-f.queue:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func feed(t *testing.T, proc *Processor, events ...workflow.Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, proc.HandleEvent(context.Background(), ev))
	}
}

func TestProcessorBufferFlushedOnceOnEnd(t *testing.T) {
	f := newProcessorFixture(t)

	feed(t, f.proc,
		workflow.TokenEvent("a"),
		workflow.TokenEvent("b"),
		workflow.TokenEvent("c"),
		workflow.EndEvent(),
	)

	steps := f.steps.all()
	require.Len(t, steps, 1)
	assert.Equal(t, "abc", steps[0].Content)
	assert.Equal(t, constant.StatusComplete, steps[0].Status)

	require.NoError(t, f.proc.Finalize(context.Background(), false))
	job, err := f.jobs.FindOne(context.Background(), byID(f.jobID))
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "abc", job.Result)
	assert.Equal(t, constant.JobStatusComplete, job.Status)
}

func TestProcessorResultSupersedesBufferedTokens(t *testing.T) {
	f := newProcessorFixture(t)

	feed(t, f.proc,
		workflow.TokenEvent("x"),
		workflow.ResultEvent("final"),
		workflow.EndEvent(),
	)

	// The result cleared the buffer, so end must not re-flush "x".
	steps := f.steps.all()
	require.Len(t, steps, 1)
	assert.Equal(t, "final", steps[0].Content)

	require.NoError(t, f.proc.Finalize(context.Background(), false))
	job, _ := f.jobs.FindOne(context.Background(), byID(f.jobID))
	require.NotNil(t, job)
	assert.Equal(t, "final", job.Result)
}

func TestProcessorToolEventFlushesBufferFirst(t *testing.T) {
	f := newProcessorFixture(t)

	feed(t, f.proc,
		workflow.TokenEvent("par"),
		workflow.TokenEvent("tial"),
		workflow.ToolStartEvent("search", `{"q":"go"}`),
	)

	steps := f.steps.all()
	require.Len(t, steps, 2)
	assert.Equal(t, "partial", steps[0].Content)
	assert.Equal(t, constant.StatusProcessing, steps[0].Status)
	assert.Empty(t, steps[0].Tool)

	assert.Equal(t, "search", steps[1].Tool)
	assert.Equal(t, constant.StatusProcessing, steps[1].Status)

	feed(t, f.proc, workflow.ToolEndEvent("search", `{"q":"go"}`, "3 hits"))
	steps = f.steps.all()
	require.Len(t, steps, 3)
	assert.Equal(t, constant.StatusComplete, steps[2].Status)
	assert.Equal(t, "3 hits", steps[2].ToolOutput)
}

func TestProcessorStepEventFlushesBufferFirst(t *testing.T) {
	f := newProcessorFixture(t)

	feed(t, f.proc,
		workflow.TokenEvent("partial "),
		workflow.TokenEvent("text"),
		workflow.PlanningEvent("planning now"),
		workflow.EndEvent(),
	)

	steps := f.steps.all()
	require.Len(t, steps, 2)

	// The buffered text streamed before the planning step, so it must be
	// persisted before it; replay order follows storage order.
	assert.Equal(t, "partial text", steps[0].Content)
	assert.Equal(t, constant.StatusProcessing, steps[0].Status)
	assert.Empty(t, steps[0].Thought)

	assert.Equal(t, "planning now", steps[1].Content)
	assert.Equal(t, constant.StatusPlanning, steps[1].Status)
	assert.Equal(t, constant.PlanningThoughtMarker, steps[1].Thought)
}

func TestProcessorDuplicateEndForwardsTerminalToken(t *testing.T) {
	f := newProcessorFixture(t)

	feed(t, f.proc,
		workflow.TokenEvent("hi"),
		workflow.EndEvent(),
		workflow.EndEvent(),
	)

	// Only the first end flushes.
	require.Len(t, f.steps.all(), 1)

	msgs := f.drain()
	last := msgs[len(msgs)-1]
	assert.Equal(t, constant.MessageTypeToken, last.Type)
	assert.Equal(t, constant.StatusComplete, last.Status)
	assert.Empty(t, last.Content)
}

func TestProcessorStaleEmptyTokenIgnoredAfterResult(t *testing.T) {
	f := newProcessorFixture(t)

	feed(t, f.proc,
		workflow.ResultEvent("done"),
		workflow.TokenEvent(""),
		workflow.EndEvent(),
	)

	steps := f.steps.all()
	require.Len(t, steps, 1)
	assert.Equal(t, "done", steps[0].Content)

	// The stale empty token produced no queue message.
	msgs := f.drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, "done", msgs[0].Content)
}

func TestProcessorPersistsAfterDisconnect(t *testing.T) {
	f := newProcessorFixture(t)
	f.registry.MarkDisconnected(f.jobID)

	feed(t, f.proc,
		workflow.TokenEvent("answer"),
		workflow.EndEvent(),
	)

	assert.Empty(t, f.drain(), "disconnected jobs must not emit display messages")

	steps := f.steps.all()
	require.Len(t, steps, 1)
	assert.Equal(t, "answer", steps[0].Content)

	require.NoError(t, f.proc.Finalize(context.Background(), false))
	job, _ := f.jobs.FindOne(context.Background(), byID(f.jobID))
	require.NotNil(t, job)
	assert.Equal(t, "answer", job.Result)
}

func TestProcessorQueueTimeoutMarksJobDisconnected(t *testing.T) {
	registry := NewJobRegistry(logger.NewNopLogger())
	steps := &memStepRepo{}
	jobs := newMemJobRepo()
	queue := make(chan *dto.OutboundMessage) // unbuffered, nobody reads

	jobID := uuid.New()
	registry.Register(jobID, uuid.New(), nil, "session-1", queue)
	registry.AttachTask(jobID)

	proc := NewProcessor(jobID, uuid.New(), nil, uuid.New(), queue, registry, steps, jobs, logger.NewNopLogger())
	proc.sendTimeout = 10 * time.Millisecond

	feed(t, proc, workflow.TokenEvent("stuck"))

	assert.False(t, registry.IsConnectionActive(jobID), "send timeout must flip the connection flag")
}

func TestProcessorFinalizeFallsBackToPersistedStep(t *testing.T) {
	f := newProcessorFixture(t)

	// Pre-persist a usable step, as if a previous processor instance wrote
	// it before its in-memory state was lost.
	feed(t, f.proc, workflow.ResultEvent("from storage"))

	fresh := NewProcessor(f.jobID, uuid.New(), nil, uuid.New(), f.queue, f.registry, f.steps, f.jobs, logger.NewNopLogger())
	require.NoError(t, fresh.Finalize(context.Background(), false))

	job, _ := f.jobs.FindOne(context.Background(), byID(f.jobID))
	require.NotNil(t, job)
	assert.Equal(t, "from storage", job.Result)
}

func TestProcessorFinalizeWithNoContent(t *testing.T) {
	f := newProcessorFixture(t)

	require.NoError(t, f.proc.Finalize(context.Background(), true))

	job, _ := f.jobs.FindOne(context.Background(), byID(f.jobID))
	require.NotNil(t, job)
	assert.Empty(t, job.Result)
	assert.Equal(t, constant.JobStatusFailed, job.Status)
}
