package mapper

import (
	"encoding/json"
	"time"

	"agent-chat-be/internal/entity"
	"agent-chat-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	out := t
	return &out
}

func deletedAtToPtr(d gorm.DeletedAt) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

func ptrToDeletedAt(t *time.Time) gorm.DeletedAt {
	if t == nil {
		return gorm.DeletedAt{}
	}
	return gorm.DeletedAt{Time: *t, Valid: true}
}

// Thread mappers

func (m *ChatMapper) ThreadToEntity(t *model.Thread) *entity.Thread {
	if t == nil {
		return nil
	}
	deletedAt := deletedAtToPtr(t.DeletedAt)
	return &entity.Thread{
		Id:        t.Id,
		ProfileId: t.ProfileId,
		Title:     t.Title,
		CreatedAt: t.CreatedAt,
		UpdatedAt: optionalTime(t.UpdatedAt),
		DeletedAt: deletedAt,
		IsDeleted: deletedAt != nil,
	}
}

func (m *ChatMapper) ThreadToModel(t *entity.Thread) *model.Thread {
	if t == nil {
		return nil
	}
	out := &model.Thread{
		Id:        t.Id,
		ProfileId: t.ProfileId,
		Title:     t.Title,
		CreatedAt: t.CreatedAt,
		DeletedAt: ptrToDeletedAt(t.DeletedAt),
	}
	if t.UpdatedAt != nil {
		out.UpdatedAt = *t.UpdatedAt
	}
	return out
}

// Agent mappers

func (m *ChatMapper) AgentToEntity(a *model.Agent) *entity.Agent {
	if a == nil {
		return nil
	}
	var cfg entity.AgentConfig
	if len(a.Config) > 0 {
		// A malformed config blob degrades to defaults rather than failing
		// the read path.
		_ = json.Unmarshal(a.Config, &cfg)
	}
	deletedAt := deletedAtToPtr(a.DeletedAt)
	return &entity.Agent{
		Id:            a.Id,
		ProfileId:     a.ProfileId,
		Name:          a.Name,
		PersonaPrompt: a.PersonaPrompt,
		Config:        cfg,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     optionalTime(a.UpdatedAt),
		DeletedAt:     deletedAt,
		IsDeleted:     deletedAt != nil,
	}
}

func (m *ChatMapper) AgentToModel(a *entity.Agent) *model.Agent {
	if a == nil {
		return nil
	}
	raw, _ := json.Marshal(a.Config)
	out := &model.Agent{
		Id:            a.Id,
		ProfileId:     a.ProfileId,
		Name:          a.Name,
		PersonaPrompt: a.PersonaPrompt,
		Config:        datatypes.JSON(raw),
		CreatedAt:     a.CreatedAt,
		DeletedAt:     ptrToDeletedAt(a.DeletedAt),
	}
	if a.UpdatedAt != nil {
		out.UpdatedAt = *a.UpdatedAt
	}
	return out
}

// Job mappers

func (m *ChatMapper) JobToEntity(j *model.Job) *entity.Job {
	if j == nil {
		return nil
	}
	return &entity.Job{
		Id:        j.Id,
		ThreadId:  j.ThreadId,
		AgentId:   j.AgentId,
		ProfileId: j.ProfileId,
		Input:     j.Input,
		Result:    j.Result,
		Status:    j.Status,
		CreatedAt: j.CreatedAt,
		UpdatedAt: optionalTime(j.UpdatedAt),
	}
}

func (m *ChatMapper) JobToModel(j *entity.Job) *model.Job {
	if j == nil {
		return nil
	}
	out := &model.Job{
		Id:        j.Id,
		ThreadId:  j.ThreadId,
		AgentId:   j.AgentId,
		ProfileId: j.ProfileId,
		Input:     j.Input,
		Result:    j.Result,
		Status:    j.Status,
		CreatedAt: j.CreatedAt,
	}
	if j.UpdatedAt != nil {
		out.UpdatedAt = *j.UpdatedAt
	}
	return out
}

// Step mappers

func (m *ChatMapper) StepToEntity(s *model.Step) *entity.Step {
	if s == nil {
		return nil
	}
	return &entity.Step{
		Id:         s.Id,
		JobId:      s.JobId,
		ThreadId:   s.ThreadId,
		AgentId:    s.AgentId,
		ProfileId:  s.ProfileId,
		Role:       s.Role,
		Content:    s.Content,
		Status:     s.Status,
		Thought:    s.Thought,
		Tool:       s.Tool,
		ToolInput:  s.ToolInput,
		ToolOutput: s.ToolOutput,
		CreatedAt:  s.CreatedAt,
	}
}

func (m *ChatMapper) StepToModel(s *entity.Step) *model.Step {
	if s == nil {
		return nil
	}
	return &model.Step{
		Id:         s.Id,
		JobId:      s.JobId,
		ThreadId:   s.ThreadId,
		AgentId:    s.AgentId,
		ProfileId:  s.ProfileId,
		Role:       s.Role,
		Content:    s.Content,
		Status:     s.Status,
		Thought:    s.Thought,
		Tool:       s.Tool,
		ToolInput:  s.ToolInput,
		ToolOutput: s.ToolOutput,
		CreatedAt:  s.CreatedAt,
	}
}

// Profile mappers

func (m *ChatMapper) ProfileToEntity(p *model.Profile) *entity.Profile {
	if p == nil {
		return nil
	}
	return &entity.Profile{
		Id:         p.Id,
		Email:      p.Email,
		ApiKeyHash: p.ApiKeyHash,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  optionalTime(p.UpdatedAt),
	}
}

func (m *ChatMapper) ProfileToModel(p *entity.Profile) *model.Profile {
	if p == nil {
		return nil
	}
	out := &model.Profile{
		Id:         p.Id,
		Email:      p.Email,
		ApiKeyHash: p.ApiKeyHash,
		CreatedAt:  p.CreatedAt,
	}
	if p.UpdatedAt != nil {
		out.UpdatedAt = *p.UpdatedAt
	}
	return out
}
