// Package aggregation derives filtered views, orderings and statistics
// from an in-memory collection of a single user's tasks.
//
// Every function is pure: inputs are never modified and no I/O happens.
package aggregation

import (
	"strings"

	"github.com/adanyl0v/manageq/internal/models"
)

// All disables the status or priority predicate of a Criteria.
const All = "all"

// Criteria selects tasks. Empty fields and All match every task.
type Criteria struct {
	Status     string
	Priority   string
	SearchText string
}

// IsEmpty reports whether c matches every task.
func (c Criteria) IsEmpty() bool {
	return isWildcard(c.Status) && isWildcard(c.Priority) && c.SearchText == ""
}

// Filter returns the tasks matching every active predicate of c, in input order.
// The search text matches a case-insensitive substring of the title or description.
func Filter(tasks []*models.Task, c Criteria) []*models.Task {
	if c.IsEmpty() {
		return tasks
	}

	search := strings.ToLower(c.SearchText)
	filtered := make([]*models.Task, 0, len(tasks))
	for _, task := range tasks {
		if !isWildcard(c.Status) && task.Status != c.Status {
			continue
		}
		if !isWildcard(c.Priority) && task.Priority != c.Priority {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(task.Title), search) &&
			!strings.Contains(strings.ToLower(task.Description), search) {
			continue
		}
		filtered = append(filtered, task)
	}
	return filtered
}

func isWildcard(value string) bool {
	return value == "" || value == All
}
