package assistant

import (
	"fmt"
	"math"
	"strings"

	"github.com/adanyl0v/manageq/internal/aggregation"
	"github.com/adanyl0v/manageq/internal/models"
)

const (
	allCaughtUpResponse    = "Great news! You have no pending tasks. You're all caught up! 🎉"
	noHighPriorityResponse = "You don't have any high-priority pending tasks. " +
		"Consider working on medium-priority items or taking a well-deserved break!"
)

// StatsAwarePolicy answers summary, focus and progress questions from the
// caller's tasks and hands everything else to its fallback.
type StatsAwarePolicy struct {
	fallback ResponsePolicy
}

func NewStatsAwarePolicy(fallback ResponsePolicy) *StatsAwarePolicy {
	return &StatsAwarePolicy{fallback: fallback}
}

func (p *StatsAwarePolicy) Name() string {
	return "stats"
}

func (p *StatsAwarePolicy) Respond(message string, tasks []*models.Task) string {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "summarize", "summary"):
		return summarize(tasks)
	case containsAny(lower, "focus", "priority"):
		return focus(tasks)
	case containsAny(lower, "progress", "stats"):
		return progress(tasks)
	default:
		return p.fallback.Respond(message, tasks)
	}
}

func summarize(tasks []*models.Task) string {
	pending := pendingTasks(tasks)
	if len(pending) == 0 {
		return allCaughtUpResponse
	}
	return fmt.Sprintf("You have %d pending tasks: %s. Focus on high-priority items first.",
		len(pending), quotedTitles(pending))
}

func focus(tasks []*models.Task) string {
	pending := aggregation.Filter(pendingTasks(tasks), aggregation.Criteria{Priority: models.PriorityHigh})
	if len(pending) == 0 {
		return noHighPriorityResponse
	}
	return fmt.Sprintf("Focus on these high-priority tasks: %s.", quotedTitles(pending))
}

func progress(tasks []*models.Task) string {
	stats := aggregation.ComputeStats(tasks)
	return fmt.Sprintf("Your progress: %d/%d tasks completed (%d%% completion rate). "+
		"%d tasks in progress, %d tasks to do.",
		stats.Completed, stats.Total, int(math.Round(stats.CompletionRate)),
		stats.InProgress, stats.Todo)
}

func pendingTasks(tasks []*models.Task) []*models.Task {
	pending := make([]*models.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Status != models.StatusCompleted {
			pending = append(pending, task)
		}
	}
	return pending
}

func quotedTitles(tasks []*models.Task) string {
	titles := make([]string, len(tasks))
	for i, task := range tasks {
		titles[i] = `"` + task.Title + `"`
	}
	return strings.Join(titles, ", ")
}

func containsAny(s string, substrs ...string) bool {
	for _, substr := range substrs {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
