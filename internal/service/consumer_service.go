// FILE: internal/service/consumer_service.go
package service

import (
	"context"

	"agent-chat-be/internal/constant"
	"agent-chat-be/internal/pkg/logger"
	"agent-chat-be/internal/repository/specification"
	"agent-chat-be/internal/repository/unitofwork"
	"agent-chat-be/pkg/bus"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const autoTitleMaxLen = 80

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService reacts to chat job lifecycle events. Its one side effect
// today is auto-titling threads that still carry no title after their first
// completed job.
type consumerService struct {
	localBus   *bus.LocalBus
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewConsumerService(
	localBus *bus.LocalBus,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		localBus:   localBus,
		uowFactory: uowFactory,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.localBus.Subscribe(ctx, constant.EventJobCompleted)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := bus.Decode(msg)
	if err != nil {
		cs.logger.Error("ConsumerService", "Failed to decode event", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // malformed payloads would retry forever otherwise
		return
	}

	rawThreadID, _ := event.Data["thread_id"].(string)
	threadID, err := uuid.Parse(rawThreadID)
	if err != nil {
		cs.logger.Error("ConsumerService", "Event carries invalid thread id", map[string]interface{}{
			"thread_id": rawThreadID,
		})
		msg.Ack()
		return
	}

	if err := cs.autoTitleThread(ctx, threadID); err != nil {
		cs.logger.Error("ConsumerService", "Failed to auto-title thread", map[string]interface{}{
			"thread_id": threadID,
			"error":     err.Error(),
		})
		msg.Nack()
		return
	}
	msg.Ack()
}

// autoTitleThread titles an untitled thread with the first job's input,
// truncated. No-op when the thread is gone or already titled.
func (cs *consumerService) autoTitleThread(ctx context.Context, threadID uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ThreadRepository().FindOne(ctx, specification.ByID{ID: threadID})
	if err != nil {
		return err
	}
	if thread == nil || thread.Title != "" {
		return nil
	}

	jobs, err := uow.JobRepository().FindAll(ctx,
		specification.ByThreadID{ThreadID: threadID},
		specification.OrderBy{Field: "created_at"},
		specification.Paginate{Limit: 1},
	)
	if err != nil {
		return err
	}
	if len(jobs) == 0 || jobs[0].Input == "" {
		return nil
	}

	title := jobs[0].Input
	if len(title) > autoTitleMaxLen {
		title = title[:autoTitleMaxLen]
	}
	thread.Title = title

	if err := uow.ThreadRepository().Update(ctx, thread); err != nil {
		return err
	}
	cs.logger.Info("ConsumerService", "Thread auto-titled", map[string]interface{}{
		"thread_id": threadID,
	})
	return nil
}
