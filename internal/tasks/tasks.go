package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeCaptureMetrics = "metrics:capture"
	TypePruneSessions  = "sessions:prune"
)

// Queue names
const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// Who asked for a task
const (
	SourceScheduler = "scheduler"
	SourceDashboard = "dashboard"
)

// Enqueuer is satisfied by *asynq.Client
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskPayload is the common payload for all tasks
type TaskPayload struct {
	Source    string `json:"source,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// NewCaptureMetricsTask creates a task that stores a metric snapshot
func NewCaptureMetricsTask(source, sessionID string) (*asynq.Task, error) {
	payload, err := json.Marshal(TaskPayload{
		Source:    source,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeCaptureMetrics, payload,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		// Unique keys on the payload: repeated presses from one browser session
		// collapse, other sessions and the scheduler queue their own capture
		asynq.Unique(time.Minute),
	), nil
}

// NewPruneSessionsTask creates a task that deletes idle browser sessions
func NewPruneSessionsTask() (*asynq.Task, error) {
	payload, err := json.Marshal(TaskPayload{Source: SourceScheduler})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypePruneSessions, payload,
		asynq.Queue(QueueLow),
		asynq.MaxRetry(1),
		asynq.Timeout(time.Minute),
		asynq.Unique(10*time.Minute),
	), nil
}

// ParseTaskPayload parses task payload from Asynq task
func ParseTaskPayload(task *asynq.Task) (TaskPayload, error) {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
