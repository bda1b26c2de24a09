package aggregation

import "github.com/adanyl0v/manageq/internal/models"

// ComputeStats counts tasks per status.
func ComputeStats(tasks []*models.Task) models.TaskStats {
	var completed, inProgress, todo int
	for _, task := range tasks {
		switch task.Status {
		case models.StatusCompleted:
			completed++
		case models.StatusInProgress:
			inProgress++
		case models.StatusTodo:
			todo++
		}
	}
	return NewStats(len(tasks), completed, inProgress, todo)
}

// NewStats builds TaskStats from precomputed counts, e.g. a database aggregate.
// The completion rate is a percentage and is 0 when there are no tasks.
func NewStats(total, completed, inProgress, todo int) models.TaskStats {
	stats := models.TaskStats{
		Total:      total,
		Completed:  completed,
		InProgress: inProgress,
		Todo:       todo,
	}
	if total > 0 {
		stats.CompletionRate = float64(completed) / float64(total) * 100
	}
	return stats
}
