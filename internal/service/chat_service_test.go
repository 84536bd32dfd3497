package service

import (
	"testing"
	"time"

	"agent-chat-be/internal/constant"
	"agent-chat-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStepToMessage(t *testing.T) {
	threadID := uuid.New()
	now := time.Now()

	tests := []struct {
		name     string
		step     *entity.Step
		wantType string
	}{
		{
			name: "tool step",
			step: &entity.Step{
				Status:     constant.StatusComplete,
				Tool:       "search",
				ToolInput:  `{"q":"go"}`,
				ToolOutput: "3 hits",
				CreatedAt:  now,
			},
			wantType: constant.MessageTypeTool,
		},
		{
			name: "planning step",
			step: &entity.Step{
				Status:    constant.StatusPlanning,
				Content:   "think first",
				Thought:   constant.PlanningThoughtMarker,
				CreatedAt: now,
			},
			wantType: constant.MessageTypeStep,
		},
		{
			name: "plain content step",
			step: &entity.Step{
				Status:    constant.StatusComplete,
				Content:   "the answer",
				Role:      constant.ChatRoleAssistant,
				CreatedAt: now,
			},
			wantType: constant.MessageTypeToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := stepToMessage(tt.step, threadID)
			assert.Equal(t, tt.wantType, msg.Type)
			assert.Equal(t, tt.step.Status, msg.Status)
			assert.Equal(t, threadID.String(), msg.ThreadId)
		})
	}
}

func TestStepToMessageToolFields(t *testing.T) {
	msg := stepToMessage(&entity.Step{
		Status:     constant.StatusComplete,
		Tool:       "search",
		ToolInput:  "in",
		ToolOutput: "out",
	}, uuid.New())

	assert.Equal(t, "search", msg.Tool)
	assert.Equal(t, "in", msg.ToolInput)
	assert.Equal(t, "out", msg.ToolOutput)
	assert.False(t, msg.PlanningOnly)
}

func TestStepToMessagePlanningFlag(t *testing.T) {
	msg := stepToMessage(&entity.Step{
		Status:  constant.StatusPlanning,
		Content: "plan",
		Thought: constant.PlanningThoughtMarker,
	}, uuid.New())

	assert.True(t, msg.PlanningOnly)
	assert.Equal(t, constant.PlanningThoughtMarker, msg.Thought)
}

func TestStepToMessageCarriesAgentId(t *testing.T) {
	agentID := uuid.New()
	msg := stepToMessage(&entity.Step{
		Status:  constant.StatusComplete,
		Content: "x",
		AgentId: &agentID,
	}, uuid.New())

	assert.Equal(t, agentID.String(), msg.AgentId)
}
