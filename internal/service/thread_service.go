// FILE: internal/service/thread_service.go
package service

import (
	"context"
	"time"

	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/entity"
	"agent-chat-be/internal/repository/specification"
	"agent-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IThreadService interface {
	Create(ctx context.Context, profileID uuid.UUID, req *dto.CreateThreadRequest) (*dto.CreateThreadResponse, error)
	List(ctx context.Context, profileID uuid.UUID) ([]*dto.ThreadResponse, error)
	Delete(ctx context.Context, profileID, threadID uuid.UUID) error
}

type threadService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewThreadService(uowFactory unitofwork.RepositoryFactory) IThreadService {
	return &threadService{uowFactory: uowFactory}
}

func (s *threadService) Create(ctx context.Context, profileID uuid.UUID, req *dto.CreateThreadRequest) (*dto.CreateThreadResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	thread := &entity.Thread{
		Id:        uuid.New(),
		ProfileId: profileID,
		Title:     req.Title,
		CreatedAt: time.Now(),
	}
	if err := uow.ThreadRepository().Create(ctx, thread); err != nil {
		return nil, err
	}
	return &dto.CreateThreadResponse{Id: thread.Id}, nil
}

func (s *threadService) List(ctx context.Context, profileID uuid.UUID) ([]*dto.ThreadResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	threads, err := uow.ThreadRepository().FindAll(ctx,
		specification.OwnedBy{ProfileID: profileID},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ThreadResponse, 0, len(threads))
	for _, t := range threads {
		res = append(res, &dto.ThreadResponse{
			Id:        t.Id,
			Title:     t.Title,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		})
	}
	return res, nil
}

func (s *threadService) Delete(ctx context.Context, profileID, threadID uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	threads := uow.ThreadRepository()

	thread, err := threads.FindOne(ctx,
		specification.ByID{ID: threadID},
		specification.OwnedBy{ProfileID: profileID},
	)
	if err != nil {
		return err
	}
	if thread == nil {
		return ErrThreadNotFound
	}
	return threads.Delete(ctx, threadID)
}
