package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("assignment bytes")
	if err := WriteFrame(&buf, MsgExecuteTask, payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	msgType, got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != MsgExecuteTask {
		t.Fatalf("type = %d, want %d", msgType, MsgExecuteTask)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload = %q, want %q", got, payload)
	}
}

func TestFrameWithEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, MsgGetTask, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.Len() != headerSize {
		t.Fatalf("empty frame is %d bytes, want %d", buf.Len(), headerSize)
	}

	msgType, payload, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != MsgGetTask || payload != nil {
		t.Fatalf("got type=%d payload=%v", msgType, payload)
	}
}

func TestReadFrameRejectsOversizePayload(t *testing.T) {
	var header [headerSize]byte
	binary.LittleEndian.PutUint64(header[0:8], uint64(MsgSubmitTask))
	binary.LittleEndian.PutUint64(header[8:16], maxPayload+1)

	_, _, err := ReadFrame(bytes.NewReader(header[:]))
	if !errors.Is(err, domain.ErrInvalidMessage) {
		t.Fatalf("err = %v, want ErrInvalidMessage", err)
	}
}

func TestReadFrameEOFAtBoundary(t *testing.T) {
	_, _, err := ReadFrame(bytes.NewReader(nil))
	if err != io.EOF {
		t.Fatalf("err = %v, want bare io.EOF", err)
	}
}

func TestReadFrameTruncatedHeader(t *testing.T) {
	_, _, err := ReadFrame(bytes.NewReader([]byte{1, 2, 3}))
	if err == nil || err == io.EOF {
		t.Fatalf("err = %v, want a wrapped read error", err)
	}
}

func TestRegisterRoundTrip(t *testing.T) {
	b, err := EncodeRegister(&Register{PID: 4321, ActorID: "actor-x"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	reg, err := DecodeRegister(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reg.PID != 4321 || reg.ActorID != "actor-x" {
		t.Fatalf("decoded %+v", reg)
	}
}

func TestDecodeObjectIDRejectsWrongLength(t *testing.T) {
	if _, err := DecodeObjectID(make([]byte, domain.IDSize-1)); !errors.Is(err, domain.ErrInvalidMessage) {
		t.Fatalf("short payload err = %v, want ErrInvalidMessage", err)
	}

	spec := domain.NewTaskSpec("", nil, 1, []byte("payload"))
	oid := spec.Returns[0]
	decoded, err := DecodeObjectID(oid[:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != oid {
		t.Fatalf("decoded %s, want %s", decoded, oid)
	}
}
