package domain

import (
	"encoding/json"
	"fmt"
)

type TaskStatus string

const (
	TaskStatusWaiting   TaskStatus = "WAITING"
	TaskStatusScheduled TaskStatus = "SCHEDULED"
	TaskStatusRunning   TaskStatus = "RUNNING"
	TaskStatusDone      TaskStatus = "DONE"
	TaskStatusLost      TaskStatus = "LOST"
)

// StatusIn reports whether s is one of the given statuses.
func StatusIn(s TaskStatus, set ...TaskStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

// TaskSpec is the immutable description of a unit of work. The ID and the
// return object IDs are derived from the argument list, actor binding,
// return count and payload, so re-submitting the same spec always yields
// the same identifiers.
type TaskSpec struct {
	ID      TaskID     `json:"id"`
	ActorID string     `json:"actor_id,omitempty"`
	Args    []ObjectID `json:"args"`
	Returns []ObjectID `json:"returns"`
	Payload []byte     `json:"payload,omitempty"`
}

// NewTaskSpec builds a spec with deterministic task and return IDs.
func NewTaskSpec(actorID string, args []ObjectID, numReturns int, payload []byte) *TaskSpec {
	id := ComputeTaskID(actorID, args, numReturns, payload)
	returns := make([]ObjectID, numReturns)
	for i := range returns {
		returns[i] = ReturnObjectID(id, i)
	}
	return &TaskSpec{
		ID:      id,
		ActorID: actorID,
		Args:    args,
		Returns: returns,
		Payload: payload,
	}
}

// HasArg reports whether oid appears in the spec's argument list.
func (s *TaskSpec) HasArg(oid ObjectID) bool {
	for _, arg := range s.Args {
		if arg == oid {
			return true
		}
	}
	return false
}

// Encode serializes the spec for the wire and the task table.
func (s *TaskSpec) Encode() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode task spec %s: %w", s.ID, err)
	}
	return b, nil
}

// DecodeTaskSpec is the inverse of Encode.
func DecodeTaskSpec(b []byte) (*TaskSpec, error) {
	var spec TaskSpec
	if err := json.Unmarshal(b, &spec); err != nil {
		return nil, fmt.Errorf("decode task spec: %w", err)
	}
	if spec.ID.IsNil() {
		return nil, fmt.Errorf("decode task spec: %w", ErrInvalidMessage)
	}
	return &spec, nil
}

// Task is a spec plus its replicated status and the node that owns it.
type Task struct {
	Spec    *TaskSpec  `json:"spec"`
	Status  TaskStatus `json:"status"`
	OwnerID string     `json:"owner_id"`
}
