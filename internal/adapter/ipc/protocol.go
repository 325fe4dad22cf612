// Package ipc implements the unix socket protocol between the scheduler
// and its worker processes. Frames are length-prefixed: an 8-byte
// little-endian message type, an 8-byte little-endian payload length,
// then the payload bytes.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
)

// MessageType tags one frame on the socket.
type MessageType uint64

const (
	// Worker to scheduler.
	MsgRegisterClient MessageType = iota + 1
	MsgSubmitTask
	MsgGetTask
	MsgTaskDone
	MsgTaskFailed
	MsgReconstructObject
	MsgDisconnectClient

	// Scheduler to worker.
	MsgExecuteTask
)

const headerSize = 16

// maxPayload bounds a single frame. Specs carrying large payloads should
// move the data through the object store instead.
const maxPayload = 64 << 20

// Register is the payload of MsgRegisterClient.
type Register struct {
	PID     int    `json:"pid"`
	ActorID string `json:"actor_id,omitempty"`
}

// WriteFrame writes one frame to w.
func WriteFrame(w io.Writer, t MessageType, payload []byte) error {
	var header [headerSize]byte
	binary.LittleEndian.PutUint64(header[0:8], uint64(t))
	binary.LittleEndian.PutUint64(header[8:16], uint64(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("write frame payload: %w", err)
		}
	}
	return nil
}

// ReadFrame reads one frame from r. io.EOF at a frame boundary surfaces
// unchanged so callers can treat it as an orderly close.
func ReadFrame(r io.Reader) (MessageType, []byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, fmt.Errorf("read frame header: %w", err)
	}
	t := MessageType(binary.LittleEndian.Uint64(header[0:8]))
	size := binary.LittleEndian.Uint64(header[8:16])
	if size > maxPayload {
		return 0, nil, fmt.Errorf("frame of %d bytes exceeds limit: %w", size, domain.ErrInvalidMessage)
	}
	if size == 0 {
		return t, nil, nil
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("read frame payload: %w", err)
	}
	return t, payload, nil
}

// EncodeRegister serializes a registration payload.
func EncodeRegister(reg *Register) ([]byte, error) {
	b, err := json.Marshal(reg)
	if err != nil {
		return nil, fmt.Errorf("encode register: %w", err)
	}
	return b, nil
}

// DecodeRegister is the inverse of EncodeRegister.
func DecodeRegister(b []byte) (*Register, error) {
	var reg Register
	if err := json.Unmarshal(b, &reg); err != nil {
		return nil, fmt.Errorf("decode register: %w", err)
	}
	return &reg, nil
}

// DecodeObjectID parses a payload that carries exactly one raw object ID.
func DecodeObjectID(b []byte) (domain.ObjectID, error) {
	var oid domain.ObjectID
	if len(b) != domain.IDSize {
		return oid, fmt.Errorf("object id payload of %d bytes: %w", len(b), domain.ErrInvalidMessage)
	}
	copy(oid[:], b)
	return oid, nil
}
