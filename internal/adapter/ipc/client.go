package ipc

import (
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
)

// Client is the worker-side handle on the scheduler socket. Drivers and
// worker processes use it to submit tasks, fetch assignments and report
// results.
type Client struct {
	writeMu sync.Mutex
	nc      net.Conn
}

// Dial connects to the scheduler's unix socket.
func Dial(socketPath string) (*Client, error) {
	nc, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial scheduler socket %s: %w", socketPath, err)
	}
	return &Client{nc: nc}, nil
}

// Register identifies this process to the scheduler. Workers register
// with their own pid; pass a non-empty actorID to bind the worker to an
// actor.
func (c *Client) Register(actorID string) error {
	return c.RegisterPID(os.Getpid(), actorID)
}

// RegisterPID registers on behalf of an explicit pid.
func (c *Client) RegisterPID(pid int, actorID string) error {
	b, err := EncodeRegister(&Register{PID: pid, ActorID: actorID})
	if err != nil {
		return err
	}
	return c.write(MsgRegisterClient, b)
}

// SubmitTask sends a spec for scheduling.
func (c *Client) SubmitTask(spec *domain.TaskSpec) error {
	b, err := spec.Encode()
	if err != nil {
		return err
	}
	return c.write(MsgSubmitTask, b)
}

// GetTask announces readiness and blocks until the scheduler pushes the
// next assignment.
func (c *Client) GetTask() (*domain.TaskSpec, error) {
	if err := c.write(MsgGetTask, nil); err != nil {
		return nil, err
	}
	for {
		t, payload, err := ReadFrame(c.nc)
		if err != nil {
			return nil, err
		}
		if t != MsgExecuteTask {
			return nil, fmt.Errorf("message type %d while awaiting assignment: %w",
				t, domain.ErrInvalidMessage)
		}
		return domain.DecodeTaskSpec(payload)
	}
}

// TaskDone reports the current assignment finished.
func (c *Client) TaskDone() error {
	return c.write(MsgTaskDone, nil)
}

// TaskFailed reports the current assignment failed.
func (c *Client) TaskFailed() error {
	return c.write(MsgTaskFailed, nil)
}

// ReconstructObject asks the scheduler to recreate oid.
func (c *Client) ReconstructObject(oid domain.ObjectID) error {
	return c.write(MsgReconstructObject, oid[:])
}

// Disconnect announces an orderly goodbye and closes the socket.
func (c *Client) Disconnect() error {
	if err := c.write(MsgDisconnectClient, nil); err != nil {
		c.nc.Close()
		return err
	}
	return c.nc.Close()
}

// Close tears the socket down without the goodbye frame.
func (c *Client) Close() error {
	return c.nc.Close()
}

func (c *Client) write(t MessageType, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(c.nc, t, payload)
}
