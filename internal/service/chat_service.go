// FILE: internal/service/chat_service.go
package service

import (
	"context"
	"errors"

	"agent-chat-be/internal/constant"
	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/entity"
	"agent-chat-be/internal/repository/specification"
	"agent-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

var ErrThreadNotFound = errors.New("thread not found")

type IChatService interface {
	GetThreadHistory(ctx context.Context, profileID, threadID uuid.UUID) ([]*dto.OutboundMessage, error)
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewChatService(uowFactory unitofwork.RepositoryFactory) IChatService {
	return &chatService{uowFactory: uowFactory}
}

// GetThreadHistory replays a thread as the same outbound shapes the live
// stream produces, sourced from persisted jobs and steps instead.
func (s *chatService) GetThreadHistory(ctx context.Context, profileID, threadID uuid.UUID) ([]*dto.OutboundMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	thread, err := uow.ThreadRepository().FindOne(ctx,
		specification.ByID{ID: threadID},
		specification.OwnedBy{ProfileID: profileID},
	)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, ErrThreadNotFound
	}

	jobs, err := uow.JobRepository().FindAll(ctx,
		specification.ByThreadID{ThreadID: threadID},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	history := make([]*dto.OutboundMessage, 0, len(jobs)*2)
	for _, job := range jobs {
		createdAt := job.CreatedAt
		userMsg := &dto.OutboundMessage{
			Type:      constant.MessageTypeUser,
			Role:      constant.ChatRoleUser,
			Content:   job.Input,
			ThreadId:  threadID.String(),
			CreatedAt: &createdAt,
		}
		if job.AgentId != nil {
			userMsg.AgentId = job.AgentId.String()
		}
		history = append(history, userMsg)

		steps, err := uow.StepRepository().FindAll(ctx,
			specification.ByJobID{JobID: job.Id},
			specification.OrderBy{Field: "created_at"},
		)
		if err != nil {
			return nil, err
		}
		for _, step := range steps {
			history = append(history, stepToMessage(step, threadID))
		}
	}
	return history, nil
}

func stepToMessage(step *entity.Step, threadID uuid.UUID) *dto.OutboundMessage {
	createdAt := step.CreatedAt
	msg := &dto.OutboundMessage{
		Status:    step.Status,
		Content:   step.Content,
		Role:      step.Role,
		ThreadId:  threadID.String(),
		CreatedAt: &createdAt,
	}
	if step.AgentId != nil {
		msg.AgentId = step.AgentId.String()
	}

	switch {
	case step.Tool != "":
		msg.Type = constant.MessageTypeTool
		msg.Tool = step.Tool
		msg.ToolInput = step.ToolInput
		msg.ToolOutput = step.ToolOutput
	case step.Thought == constant.PlanningThoughtMarker:
		msg.Type = constant.MessageTypeStep
		msg.Thought = step.Thought
		msg.PlanningOnly = true
	default:
		msg.Type = constant.MessageTypeToken
	}
	return msg
}
