package unitofwork

import (
	"context"

	"agent-chat-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ProfileRepository() contract.ProfileRepository
	ThreadRepository() contract.ThreadRepository
	AgentRepository() contract.AgentRepository
	JobRepository() contract.JobRepository
	StepRepository() contract.StepRepository
}
