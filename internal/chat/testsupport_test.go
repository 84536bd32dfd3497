package chat

import (
	"context"
	"errors"
	"sort"
	"sync"

	"agent-chat-be/internal/constant"
	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/entity"
	"agent-chat-be/internal/repository/contract"
	"agent-chat-be/internal/repository/specification"
	"agent-chat-be/internal/repository/unitofwork"
	"agent-chat-be/pkg/workflow"

	"github.com/google/uuid"
)

var errStorageDown = errors.New("storage down")

func byID(id uuid.UUID) specification.Specification {
	return specification.ByID{ID: id}
}

// memStepRepo keeps steps in memory, in insertion order. FindOne mimics the
// finalization query: newest completed, non-empty, tool-free, non-planning
// step.
type memStepRepo struct {
	mu    sync.Mutex
	steps []*entity.Step
	fail  bool
}

func (r *memStepRepo) Create(ctx context.Context, step *entity.Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errStorageDown
	}
	r.steps = append(r.steps, step)
	return nil
}

func (r *memStepRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Step, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.steps) - 1; i >= 0; i-- {
		s := r.steps[i]
		if s.Status == constant.StatusComplete && s.Content != "" && s.Tool == "" &&
			s.Thought != constant.PlanningThoughtMarker {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memStepRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Step, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Step, len(r.steps))
	copy(out, r.steps)
	return out, nil
}

func (r *memStepRepo) all() []*entity.Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Step, len(r.steps))
	copy(out, r.steps)
	return out
}

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*entity.Job
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[string]*entity.Job)}
}

func (r *memJobRepo) Create(ctx context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.Id.String()] = &cp
	return nil
}

func (r *memJobRepo) Update(ctx context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.Id.String()] = &cp
	return nil
}

func (r *memJobRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			if j, found := r.jobs[byID.ID.String()]; found {
				cp := *j
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (r *memJobRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var threadFilter *uuid.UUID
	for _, spec := range specs {
		if byThread, ok := spec.(specification.ByThreadID); ok {
			id := byThread.ThreadID
			threadFilter = &id
		}
	}

	out := make([]*entity.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		if threadFilter != nil && j.ThreadId != *threadFilter {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out, nil
}

// memAgentRepo serves the driver's persona resolution.
type memAgentRepo struct {
	mu     sync.Mutex
	agents map[string]*entity.Agent
}

func newMemAgentRepo() *memAgentRepo {
	return &memAgentRepo{agents: make(map[string]*entity.Agent)}
}

func (r *memAgentRepo) Create(ctx context.Context, agent *entity.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.Id.String()] = agent
	return nil
}

func (r *memAgentRepo) Update(ctx context.Context, agent *entity.Agent) error {
	return r.Create(ctx, agent)
}

func (r *memAgentRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (r *memAgentRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			if a, found := r.agents[byID.ID.String()]; found {
				return a, nil
			}
		}
	}
	return nil, nil
}

func (r *memAgentRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Agent, error) {
	return nil, nil
}

// fakeUnitOfWork wires the in-memory repos behind the production interface.
type fakeUnitOfWork struct {
	steps  *memStepRepo
	jobs   *memJobRepo
	agents *memAgentRepo
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *fakeUnitOfWork) Commit() error                   { return nil }
func (u *fakeUnitOfWork) Rollback() error                 { return nil }

func (u *fakeUnitOfWork) ProfileRepository() contract.ProfileRepository { return nil }
func (u *fakeUnitOfWork) ThreadRepository() contract.ThreadRepository   { return nil }
func (u *fakeUnitOfWork) AgentRepository() contract.AgentRepository     { return u.agents }
func (u *fakeUnitOfWork) JobRepository() contract.JobRepository         { return u.jobs }
func (u *fakeUnitOfWork) StepRepository() contract.StepRepository       { return u.steps }

type fakeFactory struct {
	uow *fakeUnitOfWork
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.uow
}

// stubEngine replays a fixed event script, or fails to start.
type stubEngine struct {
	script   []workflow.Event
	startErr error
}

func (e *stubEngine) Stream(ctx context.Context, req workflow.Request) (<-chan workflow.Event, error) {
	if e.startErr != nil {
		return nil, e.startErr
	}
	out := make(chan workflow.Event, len(e.script))
	for _, ev := range e.script {
		out <- ev
	}
	close(out)
	return out, nil
}

// recordingBroadcaster captures everything the driver relays to the session.
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []*dto.OutboundMessage
	errors   []string
}

func (b *recordingBroadcaster) Broadcast(msg *dto.OutboundMessage, sessionID string) {
	b.mu.Lock()
	b.messages = append(b.messages, msg)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) BroadcastError(text, sessionID string) {
	b.mu.Lock()
	b.errors = append(b.errors, text)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) sent() []*dto.OutboundMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*dto.OutboundMessage, len(b.messages))
	copy(out, b.messages)
	return out
}
