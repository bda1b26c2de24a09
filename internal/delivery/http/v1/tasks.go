package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/manageq/internal/aggregation"
	"github.com/adanyl0v/manageq/internal/models"
	"github.com/adanyl0v/manageq/internal/services"
)

type getTasksQuery struct {
	Status   string `form:"status"`
	Priority string `form:"priority"`
	Search   string `form:"search"`
	SortBy   string `form:"sortBy"`
	Order    string `form:"order"`
}

func (h *handlerImpl) HandleGetTasks(c *gin.Context) {
	userID, _ := getStringFromContext(c, userIDCtxKey)

	var query getTasksQuery
	err := c.ShouldBindQuery(&query)
	if err != nil {
		abort(c, newValidationError(err))
		return
	}
	if query.Status != "" && query.Status != aggregation.All && !models.IsValidStatus(query.Status) {
		abort(c, newBadRequestError("Invalid status filter"))
		return
	}
	if query.Priority != "" && query.Priority != aggregation.All && !models.IsValidPriority(query.Priority) {
		abort(c, newBadRequestError("Invalid priority filter"))
		return
	}

	tasks, err := h.tasks.GetTasksByUserID(c, userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to get tasks")
		abort(c, newServerError(err))
		return
	}

	// Unknown sort keys fall back to newest first.
	field, _ := aggregation.ParseSortField(query.SortBy)
	direction, _ := aggregation.ParseDirection(query.Order)

	tasks = aggregation.Filter(tasks, aggregation.Criteria{
		Status:     query.Status,
		Priority:   query.Priority,
		SearchText: query.Search,
	})
	tasks = aggregation.Sort(tasks, field, direction)

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

type createTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Priority    string `json:"priority" binding:"omitempty,oneof=low medium high"`
	Status      string `json:"status" binding:"omitempty,oneof=todo in-progress completed"`
	DueDate     string `json:"dueDate" binding:"required"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	userID, _ := getStringFromContext(c, userIDCtxKey)

	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newValidationError(err))
		return
	}
	err = validateTaskText(&req.Title, &req.Description)
	if err != nil {
		abort(c, newValidationError(err))
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		abort(c, newValidationError(err))
		return
	}

	task, err := h.tasks.CreateTask(c, services.CreateTaskParams{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		DueDate:     dueDate,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to create task")
		abortTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Task created successfully",
		"task":    task,
	})
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=low medium high"`
	Status      *string `json:"status" binding:"omitempty,oneof=todo in-progress completed"`
	DueDate     *string `json:"dueDate"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	userID, _ := getStringFromContext(c, userIDCtxKey)

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newValidationError(err))
		return
	}
	err = validateTaskText(req.Title, req.Description)
	if err != nil {
		abort(c, newValidationError(err))
		return
	}

	params := services.UpdateTaskParams{
		ID:          c.Param("id"),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
	}
	if req.DueDate != nil {
		dueDate, err := parseDueDate(*req.DueDate)
		if err != nil {
			abort(c, newValidationError(err))
			return
		}
		params.DueDate = &dueDate
	}

	task, err := h.tasks.UpdateTask(c, params)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("task_id", params.ID).
			Msg("failed to update task")
		abortTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task updated successfully",
		"task":    task,
	})
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	userID, _ := getStringFromContext(c, userIDCtxKey)
	taskID := c.Param("id")

	err := h.tasks.DeleteTask(c, services.DeleteTaskParams{
		ID:     taskID,
		UserID: userID,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task")
		abortTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

func (h *handlerImpl) HandleGetTaskStats(c *gin.Context) {
	userID, _ := getStringFromContext(c, userIDCtxKey)

	stats, err := h.tasks.GetTaskStats(c, userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to get task stats")
		abort(c, newServerError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func abortTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		abort(c, newNotFoundError(msgTaskNotFound))
	case errors.Is(err, services.ErrInvalidTaskStatus),
		errors.Is(err, services.ErrInvalidTaskPriority):
		abort(c, newValidationError(err))
	default:
		abort(c, newServerError(err))
	}
}

// parseDueDate accepts a full RFC 3339 timestamp or a bare date.
func parseDueDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid due date %q", value)
}

const (
	maxTaskTitleLen       = 100
	maxTaskDescriptionLen = 500
)

var errBlankTaskText = errors.New("title and description must not be blank")

// validateTaskText checks lengths after trimming, as the store saves the
// trimmed text. Nil fields are left out of a partial update and skipped.
func validateTaskText(title, description *string) error {
	if err := checkTaskText("title", title, maxTaskTitleLen); err != nil {
		return err
	}
	return checkTaskText("description", description, maxTaskDescriptionLen)
}

func checkTaskText(field string, value *string, maxLen int) error {
	if value == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return errBlankTaskText
	}
	if utf8.RuneCountInString(trimmed) > maxLen {
		return fmt.Errorf("%s must be at most %d characters", field, maxLen)
	}
	return nil
}
