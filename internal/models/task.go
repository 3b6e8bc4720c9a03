package models

// TaskStatus represents the server-side state of a generation task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusPaused    TaskStatus = "paused"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusStopped   TaskStatus = "stopped"
)

// Active reports whether the task still occupies the single generation slot.
func (s TaskStatus) Active() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusPaused:
		return true
	}
	return false
}

// Terminal reports whether the task has reached a final state.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusStopped:
		return true
	}
	return false
}

// Known reports whether s is a status this client understands.
func (s TaskStatus) Known() bool {
	return s.Active() || s.Terminal()
}

// GenerationTask is the client's view of the one active generation job.
type GenerationTask struct {
	TaskID   string     `json:"task_id"`
	Status   TaskStatus `json:"status"`
	Progress int        `json:"progress"`
	Message  string     `json:"message,omitempty"`
	Current  string     `json:"current,omitempty"`
	Error    string     `json:"error,omitempty"`
}
