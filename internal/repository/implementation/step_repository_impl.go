package implementation

import (
	"context"
	"errors"

	"agent-chat-be/internal/entity"
	"agent-chat-be/internal/mapper"
	"agent-chat-be/internal/model"
	"agent-chat-be/internal/repository/contract"
	"agent-chat-be/internal/repository/specification"

	"gorm.io/gorm"
)

type StepRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewStepRepository(db *gorm.DB) contract.StepRepository {
	return &StepRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *StepRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *StepRepositoryImpl) Create(ctx context.Context, step *entity.Step) error {
	m := r.mapper.StepToModel(step)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*step = *r.mapper.StepToEntity(m)
	return nil
}

func (r *StepRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Step, error) {
	var m model.Step
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.StepToEntity(&m), nil
}

func (r *StepRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Step, error) {
	var models []*model.Step
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Step, len(models))
	for i, m := range models {
		entities[i] = r.mapper.StepToEntity(m)
	}
	return entities, nil
}
