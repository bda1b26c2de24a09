package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/manageq/internal/aggregation"
	"github.com/adanyl0v/manageq/internal/models"
)

type taskServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewTaskService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) TaskService {
	return &taskServiceImpl{
		logger: logger,
		pgPool: pgPool,
	}
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	now := storedTime(time.Now())
	task := &models.Task{
		UserID:      params.UserID,
		Title:       strings.TrimSpace(params.Title),
		Description: strings.TrimSpace(params.Description),
		Priority:    params.Priority,
		Status:      params.Status,
		DueDate:     storedTime(params.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	} else if !models.IsValidPriority(task.Priority) {
		return nil, ErrInvalidTaskPriority
	}
	if task.Status == "" {
		task.Status = models.StatusTodo
	} else if !models.IsValidStatus(task.Status) {
		return nil, ErrInvalidTaskStatus
	}

	taskUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate task uuid")
		return nil, fmt.Errorf("failed to generate task id: %w", err)
	}
	task.ID = taskUUID.String()

	const insertTaskQuery = `
INSERT INTO tasks (id,
                   user_id,
                   title,
                   description,
                   priority,
                   status,
                   due_date,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err = s.pgPool.Exec(
		ctx,
		insertTaskQuery,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.DueDate,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", task.UserID).
			Msg("failed to insert task")
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	s.logger.Debug().
		Str("task_id", task.ID).
		Msg("inserted task")

	s.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", task.UserID).
		Msg("created task")
	return task, nil
}

func (s *taskServiceImpl) GetTasksByUserID(ctx context.Context, userID string) ([]*models.Task, error) {
	const selectTasksByUserIDQuery = `
SELECT id,
       title,
       description,
       priority,
       status,
       due_date,
       created_at,
       updated_at
FROM tasks
WHERE user_id = $1
ORDER BY created_at DESC
`
	rows, err := s.pgPool.Query(
		ctx,
		selectTasksByUserIDQuery,
		userID,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select tasks by user id")
		return nil, fmt.Errorf("failed to select tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task := &models.Task{UserID: userID}
		err = rows.Scan(
			&task.ID,
			&task.Title,
			&task.Description,
			&task.Priority,
			&task.Status,
			&task.DueDate,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		normalizeTaskTimes(task)
		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, fmt.Errorf("failed to iterate over tasks: %w", err)
	}

	s.logger.Info().
		Int("count", len(tasks)).
		Str("user_id", userID).
		Msg("selected tasks by user id")
	return tasks, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error) {
	if _, err := uuid.Parse(params.ID); err != nil {
		s.logger.Error().
			Str("task_id", params.ID).
			Msg("malformed task id")
		return nil, ErrTaskNotFound
	}
	if params.Priority != nil && !models.IsValidPriority(*params.Priority) {
		return nil, ErrInvalidTaskPriority
	}
	if params.Status != nil && !models.IsValidStatus(*params.Status) {
		return nil, ErrInvalidTaskStatus
	}

	task := &models.Task{
		ID:        params.ID,
		UserID:    params.UserID,
		UpdatedAt: storedTime(time.Now()),
	}
	var dueDate *time.Time
	if params.DueDate != nil {
		d := storedTime(*params.DueDate)
		dueDate = &d
	}

	// A single statement keeps concurrent updates of the same task atomic.
	const updateTaskQuery = `
UPDATE tasks
SET title = COALESCE($1, title),
    description = COALESCE($2, description),
    priority = COALESCE($3, priority),
    status = COALESCE($4, status),
    due_date = COALESCE($5, due_date),
    updated_at = $6
WHERE id = $7 AND user_id = $8
RETURNING title, description, priority, status, due_date, created_at
`
	err := s.pgPool.QueryRow(
		ctx,
		updateTaskQuery,
		trimmed(params.Title),
		trimmed(params.Description),
		params.Priority,
		params.Status,
		dueDate,
		task.UpdatedAt,
		task.ID,
		task.UserID,
	).Scan(
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.Status,
		&task.DueDate,
		&task.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Str("task_id", task.ID).
				Str("user_id", task.UserID).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to update task")
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	normalizeTaskTimes(task)

	s.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", task.UserID).
		Msg("updated task")
	return task, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, params DeleteTaskParams) error {
	if _, err := uuid.Parse(params.ID); err != nil {
		s.logger.Error().
			Str("task_id", params.ID).
			Msg("malformed task id")
		return ErrTaskNotFound
	}

	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1 AND user_id = $2
`
	tag, err := s.pgPool.Exec(
		ctx,
		deleteTaskQuery,
		params.ID,
		params.UserID,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", params.ID).
			Msg("failed to delete task")
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Error().
			Str("task_id", params.ID).
			Str("user_id", params.UserID).
			Msg("task not found")
		return ErrTaskNotFound
	}

	s.logger.Info().
		Str("task_id", params.ID).
		Str("user_id", params.UserID).
		Msg("deleted task")
	return nil
}

func (s *taskServiceImpl) GetTaskStats(ctx context.Context, userID string) (models.TaskStats, error) {
	const selectTaskStatsQuery = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE status = 'completed'),
       COUNT(*) FILTER (WHERE status = 'in-progress'),
       COUNT(*) FILTER (WHERE status = 'todo')
FROM tasks
WHERE user_id = $1
`
	var total, completed, inProgress, todo int
	err := s.pgPool.QueryRow(
		ctx,
		selectTaskStatsQuery,
		userID,
	).Scan(
		&total,
		&completed,
		&inProgress,
		&todo,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select task stats")
		return models.TaskStats{}, fmt.Errorf("failed to select task stats: %w", err)
	}

	stats := aggregation.NewStats(total, completed, inProgress, todo)
	s.logger.Info().
		Str("user_id", userID).
		Int("total", stats.Total).
		Float64("completion_rate", stats.CompletionRate).
		Msg("computed task stats")
	return stats, nil
}

// storedTime matches what a timestamptz column gives back, so a task
// serializes the same way on create as on a later fetch.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func normalizeTaskTimes(task *models.Task) {
	task.DueDate = storedTime(task.DueDate)
	task.CreatedAt = storedTime(task.CreatedAt)
	task.UpdatedAt = storedTime(task.UpdatedAt)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
