package domain

import "time"

// TaskEventType enumerates the lifecycle transitions published to the
// event feed for external monitoring.
type TaskEventType string

const (
	TaskEventSubmitted     TaskEventType = "submitted"
	TaskEventAssigned      TaskEventType = "assigned"
	TaskEventDone          TaskEventType = "done"
	TaskEventFailed        TaskEventType = "failed"
	TaskEventReconstructed TaskEventType = "reconstructed"
)

// TaskEvent is one lifecycle transition observed by a local scheduler.
type TaskEvent struct {
	Type   TaskEventType `json:"type"`
	TaskID TaskID        `json:"task_id"`
	NodeID string        `json:"node_id"`
	Status TaskStatus    `json:"status,omitempty"`
	At     time.Time     `json:"at"`
}

// TaskRecord is the durable archive row written on terminal transitions.
type TaskRecord struct {
	TaskID    TaskID
	Status    TaskStatus
	NodeID    string
	WorkerPID int
	At        time.Time
}
