// Package osproc runs worker processes as detached OS subprocesses.
package osproc

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"

	"go.uber.org/zap"
)

// Runtime implements port.WorkerRuntime on top of os/exec. Spawned
// processes are reaped on exit so dead workers never linger as zombies.
type Runtime struct {
	log *zap.Logger
}

func NewRuntime(log *zap.Logger) *Runtime {
	return &Runtime{log: log}
}

// Spawn starts argv detached from the scheduler's process group and
// returns its pid. The child's lifetime is not tied to ctx; killing a
// worker is an explicit Signal call.
func (r *Runtime) Spawn(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("spawn worker: empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawn worker %q: %w", argv[0], err)
	}
	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		if err != nil {
			r.log.Info("worker process exited", zap.Int("pid", pid), zap.Error(err))
		} else {
			r.log.Info("worker process exited", zap.Int("pid", pid))
		}
	}()
	return pid, nil
}

// Signal delivers SIGTERM, or SIGKILL when forceful.
func (r *Runtime) Signal(pid int, forceful bool) error {
	sig := syscall.SIGTERM
	if forceful {
		sig = syscall.SIGKILL
	}
	if err := syscall.Kill(pid, sig); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return nil
}
