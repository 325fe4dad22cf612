package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
	"github.com/crabzie/Fog-Local-Scheduler/internal/core/service"
)

// Server listens on a unix socket and translates frames into scheduler
// calls. One goroutine per connection reads frames; writes to a worker
// go through its conn, which serializes them with a mutex so the event
// loop never blocks on socket I/O ordering.
type Server struct {
	scheduler *service.Scheduler
	log       *zap.Logger
	path      string

	mu       sync.Mutex
	listener net.Listener
	conns    map[*Conn]struct{}
	wg       sync.WaitGroup
}

func NewServer(scheduler *service.Scheduler, socketPath string, log *zap.Logger) *Server {
	return &Server{
		scheduler: scheduler,
		log:       log,
		path:      socketPath,
		conns:     make(map[*Conn]struct{}),
	}
}

// Listen binds the socket, removing a stale file left by a previous run.
func (s *Server) Listen() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", s.path, err)
	}
	l, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	s.log.Info("ipc listening", zap.String("socket", s.path))
	return nil
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		nc, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		c := &Conn{nc: nc}
		s.mu.Lock()
		s.conns[c] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go s.serveConn(c)
	}
}

// Close shuts the listener and every live connection.
func (s *Server) Close() {
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
}

func (s *Server) serveConn(c *Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		c.Close()
		s.scheduler.WorkerDisconnected(c)
	}()

	for {
		t, payload, err := ReadFrame(c.nc)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Warn("ipc read", zap.Error(err))
			}
			return
		}
		if err := s.handleFrame(c, t, payload); err != nil {
			s.log.Warn("ipc frame", zap.Uint64("type", uint64(t)), zap.Error(err))
			if errors.Is(err, domain.ErrInvalidMessage) {
				return
			}
		}
	}
}

func (s *Server) handleFrame(c *Conn, t MessageType, payload []byte) error {
	switch t {
	case MsgRegisterClient:
		reg, err := DecodeRegister(payload)
		if err != nil {
			return err
		}
		s.scheduler.RegisterWorker(c, reg.PID, reg.ActorID)
	case MsgSubmitTask:
		spec, err := domain.DecodeTaskSpec(payload)
		if err != nil {
			return err
		}
		s.scheduler.SubmitTask(spec)
	case MsgGetTask:
		s.scheduler.WorkerGetTask(c)
	case MsgTaskDone:
		s.scheduler.TaskDone(c)
	case MsgTaskFailed:
		s.scheduler.TaskFailed(c)
	case MsgReconstructObject:
		oid, err := DecodeObjectID(payload)
		if err != nil {
			return err
		}
		s.scheduler.ReconstructObject(oid)
	case MsgDisconnectClient:
		return io.EOF
	default:
		return fmt.Errorf("message type %d: %w", t, domain.ErrInvalidMessage)
	}
	return nil
}

// Conn is one accepted worker connection. It implements
// service.TaskSender.
type Conn struct {
	nc net.Conn

	writeMu sync.Mutex
	closed  bool
}

// SendTask pushes an assignment frame to the worker.
func (c *Conn) SendTask(spec *domain.TaskSpec) error {
	b, err := spec.Encode()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	return WriteFrame(c.nc, MsgExecuteTask, b)
}

func (c *Conn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.nc.Close()
}
