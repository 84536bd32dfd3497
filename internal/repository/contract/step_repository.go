package contract

import (
	"context"

	"agent-chat-be/internal/entity"
	"agent-chat-be/internal/repository/specification"
)

type StepRepository interface {
	Create(ctx context.Context, step *entity.Step) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Step, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Step, error)
}
