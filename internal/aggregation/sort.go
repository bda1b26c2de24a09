package aggregation

import (
	"cmp"
	"slices"

	"github.com/adanyl0v/manageq/internal/models"
)

type SortField string

const (
	SortByID          SortField = "id"
	SortByTitle       SortField = "title"
	SortByDescription SortField = "description"
	SortByPriority    SortField = "priority"
	SortByStatus      SortField = "status"
	SortByDueDate     SortField = "dueDate"
	SortByCreatedAt   SortField = "createdAt"
	SortByUpdatedAt   SortField = "updatedAt"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

const (
	DefaultSortField = SortByCreatedAt
	DefaultDirection = Desc
)

// ParseSortField maps a query value to a SortField. An empty value
// yields the default field; an unknown one yields the default and false.
func ParseSortField(value string) (SortField, bool) {
	if value == "" {
		return DefaultSortField, true
	}

	field := SortField(value)
	switch field {
	case SortByID, SortByTitle, SortByDescription, SortByPriority,
		SortByStatus, SortByDueDate, SortByCreatedAt, SortByUpdatedAt:
		return field, true
	}
	return DefaultSortField, false
}

// ParseDirection maps a query value to a Direction. An empty value
// yields the default direction; an unknown one yields the default and false.
func ParseDirection(value string) (Direction, bool) {
	switch Direction(value) {
	case "":
		return DefaultDirection, true
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}
	return DefaultDirection, false
}

// Sort returns a stably sorted copy of tasks. Strings are ordered
// lexicographically (priority included), timestamps chronologically.
func Sort(tasks []*models.Task, field SortField, direction Direction) []*models.Task {
	compare := comparator(field)
	if direction == Desc {
		asc := compare
		compare = func(a, b *models.Task) int { return asc(b, a) }
	}

	sorted := slices.Clone(tasks)
	slices.SortStableFunc(sorted, compare)
	return sorted
}

func comparator(field SortField) func(a, b *models.Task) int {
	switch field {
	case SortByID:
		return func(a, b *models.Task) int { return cmp.Compare(a.ID, b.ID) }
	case SortByTitle:
		return func(a, b *models.Task) int { return cmp.Compare(a.Title, b.Title) }
	case SortByDescription:
		return func(a, b *models.Task) int { return cmp.Compare(a.Description, b.Description) }
	case SortByPriority:
		return func(a, b *models.Task) int { return cmp.Compare(a.Priority, b.Priority) }
	case SortByStatus:
		return func(a, b *models.Task) int { return cmp.Compare(a.Status, b.Status) }
	case SortByDueDate:
		return func(a, b *models.Task) int { return a.DueDate.Compare(b.DueDate) }
	case SortByUpdatedAt:
		return func(a, b *models.Task) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	default:
		return func(a, b *models.Task) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
}
