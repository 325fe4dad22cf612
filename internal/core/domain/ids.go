// Package domain provides the scheduler's core entities: object and task
// identifiers, task specs, task status, node records and lifecycle events.
package domain

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
)

// IDSize is the width of every identifier in bytes.
const IDSize = 20

// indexWidth is the number of trailing bytes of an ObjectID that carry the
// return index. A TaskID always has these bytes zeroed, so the producing
// task of any object is recoverable from the object ID alone.
const indexWidth = 4

// ObjectID identifies an immutable object in the object store.
type ObjectID [IDSize]byte

// TaskID identifies a task. Derived deterministically from the TaskSpec.
type TaskID [IDSize]byte

var (
	NilObjectID ObjectID
	NilTaskID   TaskID
)

func (id ObjectID) IsNil() bool { return id == NilObjectID }
func (id TaskID) IsNil() bool   { return id == NilTaskID }

func (id ObjectID) String() string { return hex.EncodeToString(id[:]) }
func (id TaskID) String() string   { return hex.EncodeToString(id[:]) }

func (id ObjectID) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(id[:])), nil
}

func (id *ObjectID) UnmarshalText(b []byte) error {
	decoded, err := hex.DecodeString(string(b))
	if err != nil {
		return fmt.Errorf("decode object id: %w", err)
	}
	if len(decoded) != IDSize {
		return fmt.Errorf("object id must be %d bytes, got %d", IDSize, len(decoded))
	}
	copy(id[:], decoded)
	return nil
}

func (id TaskID) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(id[:])), nil
}

func (id *TaskID) UnmarshalText(b []byte) error {
	var oid ObjectID
	if err := oid.UnmarshalText(b); err != nil {
		return fmt.Errorf("decode task id: %w", err)
	}
	copy(id[:], oid[:])
	return nil
}

// ObjectIDFromHex parses a 40-character hex string.
func ObjectIDFromHex(s string) (ObjectID, error) {
	var id ObjectID
	err := id.UnmarshalText([]byte(s))
	return id, err
}

// TaskIDFromHex parses a 40-character hex string.
func TaskIDFromHex(s string) (TaskID, error) {
	var id TaskID
	err := id.UnmarshalText([]byte(s))
	return id, err
}

// ComputeTaskID hashes the deterministic parts of a spec. The trailing
// index bytes are cleared so return object IDs can embed their index.
func ComputeTaskID(actorID string, args []ObjectID, numReturns int, payload []byte) TaskID {
	h := sha1.New()
	io.WriteString(h, actorID)
	for _, arg := range args {
		h.Write(arg[:])
	}
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(numReturns))
	h.Write(n[:])
	h.Write(payload)

	var id TaskID
	copy(id[:], h.Sum(nil))
	for i := IDSize - indexWidth; i < IDSize; i++ {
		id[i] = 0
	}
	return id
}

// ReturnObjectID derives the ID of a task's i-th return value.
func ReturnObjectID(task TaskID, i int) ObjectID {
	var oid ObjectID
	copy(oid[:], task[:])
	binary.LittleEndian.PutUint32(oid[IDSize-indexWidth:], uint32(i+1))
	return oid
}

// ProducerTaskID recovers the ID of the task that produces oid.
func ProducerTaskID(oid ObjectID) TaskID {
	var id TaskID
	copy(id[:], oid[:])
	for i := IDSize - indexWidth; i < IDSize; i++ {
		id[i] = 0
	}
	return id
}

// ReturnIndex recovers the return slot an object occupies in its producer.
func ReturnIndex(oid ObjectID) int {
	return int(binary.LittleEndian.Uint32(oid[IDSize-indexWidth:])) - 1
}
