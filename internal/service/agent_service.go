// FILE: internal/service/agent_service.go
package service

import (
	"context"
	"errors"
	"time"

	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/entity"
	"agent-chat-be/internal/repository/specification"
	"agent-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

var ErrAgentNotFound = errors.New("agent not found")

type IAgentService interface {
	Create(ctx context.Context, profileID uuid.UUID, req *dto.CreateAgentRequest) (*dto.AgentResponse, error)
	Show(ctx context.Context, profileID, agentID uuid.UUID) (*dto.AgentResponse, error)
	List(ctx context.Context, profileID uuid.UUID) ([]*dto.AgentResponse, error)
	Update(ctx context.Context, profileID, agentID uuid.UUID, req *dto.UpdateAgentRequest) (*dto.AgentResponse, error)
	Delete(ctx context.Context, profileID, agentID uuid.UUID) error
}

type agentService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewAgentService(uowFactory unitofwork.RepositoryFactory) IAgentService {
	return &agentService{uowFactory: uowFactory}
}

func (s *agentService) Create(ctx context.Context, profileID uuid.UUID, req *dto.CreateAgentRequest) (*dto.AgentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	agent := &entity.Agent{
		Id:            uuid.New(),
		ProfileId:     profileID,
		Name:          req.Name,
		PersonaPrompt: req.PersonaPrompt,
		Config: entity.AgentConfig{
			KnowledgeCollections: req.KnowledgeCollections,
			Tools:                req.Tools,
		},
		CreatedAt: time.Now(),
	}
	if err := uow.AgentRepository().Create(ctx, agent); err != nil {
		return nil, err
	}
	return toAgentResponse(agent), nil
}

func (s *agentService) Show(ctx context.Context, profileID, agentID uuid.UUID) (*dto.AgentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	agent, err := s.findOwned(ctx, uow, profileID, agentID)
	if err != nil {
		return nil, err
	}
	return toAgentResponse(agent), nil
}

func (s *agentService) List(ctx context.Context, profileID uuid.UUID) ([]*dto.AgentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	agents, err := uow.AgentRepository().FindAll(ctx,
		specification.OwnedBy{ProfileID: profileID},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.AgentResponse, 0, len(agents))
	for _, a := range agents {
		res = append(res, toAgentResponse(a))
	}
	return res, nil
}

func (s *agentService) Update(ctx context.Context, profileID, agentID uuid.UUID, req *dto.UpdateAgentRequest) (*dto.AgentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	agent, err := s.findOwned(ctx, uow, profileID, agentID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		agent.Name = *req.Name
	}
	if req.PersonaPrompt != nil {
		agent.PersonaPrompt = *req.PersonaPrompt
	}
	if req.KnowledgeCollections != nil {
		agent.Config.KnowledgeCollections = req.KnowledgeCollections
	}
	if req.Tools != nil {
		agent.Config.Tools = req.Tools
	}
	now := time.Now()
	agent.UpdatedAt = &now

	if err := uow.AgentRepository().Update(ctx, agent); err != nil {
		return nil, err
	}
	return toAgentResponse(agent), nil
}

func (s *agentService) Delete(ctx context.Context, profileID, agentID uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.findOwned(ctx, uow, profileID, agentID); err != nil {
		return err
	}
	return uow.AgentRepository().Delete(ctx, agentID)
}

func (s *agentService) findOwned(ctx context.Context, uow unitofwork.UnitOfWork, profileID, agentID uuid.UUID) (*entity.Agent, error) {
	agent, err := uow.AgentRepository().FindOne(ctx,
		specification.ByID{ID: agentID},
		specification.OwnedBy{ProfileID: profileID},
	)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ErrAgentNotFound
	}
	return agent, nil
}

func toAgentResponse(agent *entity.Agent) *dto.AgentResponse {
	return &dto.AgentResponse{
		Id:                   agent.Id,
		Name:                 agent.Name,
		PersonaPrompt:        agent.PersonaPrompt,
		KnowledgeCollections: agent.Config.KnowledgeCollections,
		Tools:                agent.Config.Tools,
		CreatedAt:            agent.CreatedAt,
		UpdatedAt:            agent.UpdatedAt,
	}
}
