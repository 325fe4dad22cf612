// Package postgres persists terminal task transitions for audit queries.
package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/crabzie/Fog-Local-Scheduler/internal/core/domain"
	"github.com/crabzie/Fog-Local-Scheduler/internal/core/port"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type taskArchive struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

// NewTaskArchive creates the Postgres-backed archive adapter.
func NewTaskArchive(db *pgxpool.Pool, log *zap.Logger) port.TaskArchive {
	return &taskArchive{
		db:  db,
		log: log,
	}
}

func (a *taskArchive) Append(ctx context.Context, record *domain.TaskRecord) error {
	query, args, err := psql.
		Insert("task_archive").
		Columns("task_id", "status", "node_id", "worker_pid", "recorded_at").
		Values(record.TaskID.String(), string(record.Status), record.NodeID,
			record.WorkerPID, record.At).
		ToSql()
	if err != nil {
		return fmt.Errorf("build archive insert: %w", err)
	}

	if _, err := a.db.Exec(ctx, query, args...); err != nil {
		a.log.Error("Failed to append archive record",
			zap.Stringer("task_id", record.TaskID), zap.Error(err))
		return err
	}
	return nil
}

// ListRecent returns the newest archive rows, newest first.
func (a *taskArchive) ListRecent(ctx context.Context, limit uint64) ([]*domain.TaskRecord, error) {
	query, args, err := psql.
		Select("task_id", "status", "node_id", "worker_pid", "recorded_at").
		From("task_archive").
		OrderBy("recorded_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build archive select: %w", err)
	}

	rows, err := a.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.TaskRecord
	for rows.Next() {
		var (
			taskID string
			status string
			rec    domain.TaskRecord
			at     time.Time
		)
		if err := rows.Scan(&taskID, &status, &rec.NodeID, &rec.WorkerPID, &at); err != nil {
			return nil, err
		}
		id, err := domain.TaskIDFromHex(taskID)
		if err != nil {
			return nil, err
		}
		rec.TaskID = id
		rec.Status = domain.TaskStatus(status)
		rec.At = at
		records = append(records, &rec)
	}
	return records, rows.Err()
}
