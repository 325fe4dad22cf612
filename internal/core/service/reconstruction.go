package service

import (
	"errors"

	"go.uber.org/zap"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
)

// reconstruction tracks one in-flight attempt to bring an object back
// into existence. The attempt walks three asynchronous steps on the
// event loop: an object table lookup, a task table read, and a status
// CAS. If the object appears locally at any point the attempt is marked
// aborted and every later step becomes a no-op.
type reconstruction struct {
	oid     domain.ObjectID
	aborted bool
}

func (s *Scheduler) handleReconstruct(oid domain.ObjectID) {
	if s.index.Available(oid) {
		return
	}
	if _, inflight := s.recon[oid]; inflight {
		return
	}
	r := &reconstruction{oid: oid}
	s.recon[oid] = r
	s.log.Debug("reconstruction requested", zap.Stringer("object_id", oid))

	s.loop.AddPending()
	s.objects.Lookup(s.ctx, oid, func(locations []string, err error) {
		s.loop.Post(func() { s.reconLocations(r, locations, err) })
		s.loop.DonePending()
	})
}

// reconLocations handles the object table answer. Any live copy in the
// cluster suppresses the attempt.
func (s *Scheduler) reconLocations(r *reconstruction, locations []string, err error) {
	if r.aborted {
		return
	}
	if err != nil {
		s.log.Error("object table lookup",
			zap.Stringer("object_id", r.oid), zap.Error(err))
		delete(s.recon, r.oid)
		return
	}
	if len(locations) > 0 {
		s.log.Debug("reconstruction suppressed, object has copies",
			zap.Stringer("object_id", r.oid), zap.Int("copies", len(locations)))
		delete(s.recon, r.oid)
		return
	}

	taskID := domain.ProducerTaskID(r.oid)
	s.loop.AddPending()
	s.tasks.Get(s.ctx, taskID, func(task *domain.Task, err error) {
		s.loop.Post(func() { s.reconTaskState(r, task, err) })
		s.loop.DonePending()
	})
}

// reconTaskState handles the producer's replicated record. A producer
// that is queued or running anywhere will recreate the object on its
// own, so only terminal states go on to the CAS.
func (s *Scheduler) reconTaskState(r *reconstruction, task *domain.Task, err error) {
	if r.aborted {
		return
	}
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			s.log.Warn("reconstruction found no producer record",
				zap.Stringer("object_id", r.oid))
		} else {
			s.log.Error("task table get",
				zap.Stringer("object_id", r.oid), zap.Error(err))
		}
		delete(s.recon, r.oid)
		return
	}
	if domain.StatusIn(task.Status,
		domain.TaskStatusWaiting, domain.TaskStatusScheduled, domain.TaskStatusRunning) {
		s.log.Debug("reconstruction suppressed, producer is live",
			zap.Stringer("task_id", task.Spec.ID),
			zap.String("status", string(task.Status)))
		delete(s.recon, r.oid)
		return
	}

	s.loop.AddPending()
	s.tasks.TestAndUpdateStatus(s.ctx, task.Spec.ID,
		[]domain.TaskStatus{domain.TaskStatusDone, domain.TaskStatusLost},
		domain.TaskStatusScheduled,
		func(swapped bool, current domain.TaskStatus, err error) {
			s.loop.Post(func() { s.reconCAS(r, task.Spec, swapped, current, err) })
			s.loop.DonePending()
		})
}

// reconCAS handles the CAS outcome. Exactly one scheduler in the cluster
// wins the swap and resubmits the producer; everyone else backs off.
func (s *Scheduler) reconCAS(r *reconstruction, spec *domain.TaskSpec, swapped bool, current domain.TaskStatus, err error) {
	delete(s.recon, r.oid)
	if r.aborted {
		return
	}
	if err != nil {
		s.log.Error("task status swap",
			zap.Stringer("task_id", spec.ID), zap.Error(err))
		return
	}
	if !swapped {
		s.log.Debug("reconstruction lost the swap",
			zap.Stringer("task_id", spec.ID),
			zap.String("current", string(current)))
		return
	}

	s.metricInc(func(m *Metrics) { m.Reconstructions.Inc() })
	s.publishEvent(domain.TaskEventReconstructed, spec.ID, domain.TaskStatusScheduled)
	s.log.Info("reconstructing object by resubmitting producer",
		zap.Stringer("object_id", r.oid), zap.Stringer("task_id", spec.ID))
	s.handleTaskSubmitted(spec)
}
