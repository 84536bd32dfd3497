package chat

import (
	"sync"

	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// jobState is the process-wide tracking entry for one in-flight chat job.
// connectionActive flips true→false exactly once; the reverse transition
// never happens.
type jobState struct {
	threadID         uuid.UUID
	agentID          *uuid.UUID
	sessionID        string
	queue            chan *dto.OutboundMessage
	taskStarted      bool
	connectionActive bool
}

// JobRegistry maps job id → job state. It serves the driver's own
// bookkeeping and gives the session registry a way to mark jobs
// disconnected without the driver's cooperation. All map access goes
// through these methods.
type JobRegistry struct {
	mu     sync.RWMutex
	jobs   map[uuid.UUID]*jobState
	logger logger.ILogger
}

func NewJobRegistry(log logger.ILogger) *JobRegistry {
	return &JobRegistry{
		jobs:   make(map[uuid.UUID]*jobState),
		logger: log,
	}
}

// Register inserts a new job with a live connection and no task attached
// yet. Readers must tolerate the short window before AttachTask.
func (r *JobRegistry) Register(jobID, threadID uuid.UUID, agentID *uuid.UUID, sessionID string, queue chan *dto.OutboundMessage) {
	r.mu.Lock()
	r.jobs[jobID] = &jobState{
		threadID:         threadID,
		agentID:          agentID,
		sessionID:        sessionID,
		queue:            queue,
		connectionActive: true,
	}
	r.mu.Unlock()
}

// AttachTask records that the background producer for the job is running.
func (r *JobRegistry) AttachTask(jobID uuid.UUID) {
	r.mu.Lock()
	if j, ok := r.jobs[jobID]; ok {
		j.taskStarted = true
	} else {
		r.logger.Debug("JobRegistry", "AttachTask for unknown job", map[string]interface{}{
			"job_id": jobID,
		})
	}
	r.mu.Unlock()
}

// MarkDisconnectedForSession flips connectionActive to false for every job
// of the session whose producer is running and which is still marked live.
// Idempotent; safe with zero matching jobs. Returns the number of jobs
// flagged.
func (r *JobRegistry) MarkDisconnectedForSession(sessionID string) int {
	flagged := 0
	r.mu.Lock()
	for _, j := range r.jobs {
		if j.sessionID == sessionID && j.taskStarted && j.connectionActive {
			j.connectionActive = false
			flagged++
		}
	}
	r.mu.Unlock()
	return flagged
}

// MarkDisconnected flips one job's connection flag. One-way.
func (r *JobRegistry) MarkDisconnected(jobID uuid.UUID) {
	r.mu.Lock()
	if j, ok := r.jobs[jobID]; ok {
		j.connectionActive = false
	} else {
		r.logger.Debug("JobRegistry", "MarkDisconnected for unknown job", map[string]interface{}{
			"job_id": jobID,
		})
	}
	r.mu.Unlock()
}

// IsConnectionActive reports whether the job may still be written to. An
// unknown job id reads as inactive; callers treat skip-as-expected, not as
// an error.
func (r *JobRegistry) IsConnectionActive(jobID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[jobID]
	return ok && j.connectionActive
}

// Exists reports whether the job is still tracked.
func (r *JobRegistry) Exists(jobID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.jobs[jobID]
	return ok
}

// Remove deletes the job unconditionally. Called exactly once per job on
// every exit path of the driver loop; removing an absent job is a no-op.
func (r *JobRegistry) Remove(jobID uuid.UUID) {
	r.mu.Lock()
	delete(r.jobs, jobID)
	r.mu.Unlock()
}

// Len reports the number of tracked jobs.
func (r *JobRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
