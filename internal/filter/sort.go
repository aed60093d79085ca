package filter

import (
	"cmp"
	"slices"
	"time"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
)

// sortField orders records by one key. Records without a value sort last
// in either direction.
type sortField[T any] struct {
	present func(T) bool
	compare func(a, b T) int
}

func timeField[T any](get func(T) *time.Time) sortField[T] {
	return sortField[T]{
		present: func(record T) bool { return get(record) != nil },
		compare: func(a, b T) int { return get(a).Compare(*get(b)) },
	}
}

func intField[T any](get func(T) *int) sortField[T] {
	return sortField[T]{
		present: func(record T) bool { return get(record) != nil },
		compare: func(a, b T) int { return cmp.Compare(*get(a), *get(b)) },
	}
}

func textField[T any](get func(T) string) sortField[T] {
	return sortField[T]{
		present: func(T) bool { return true },
		compare: func(a, b T) int {
			return cmp.Compare(fold(get(a)), fold(get(b)))
		},
	}
}

var taskSortFields = map[string]sortField[model.Task]{
	"name":              textField(func(t model.Task) string { return t.Name }),
	"due_date":          timeField(func(t model.Task) *time.Time { return t.DueDate }),
	"defer_date":        timeField(func(t model.Task) *time.Time { return t.DeferDate }),
	"completion_date":   timeField(func(t model.Task) *time.Time { return t.CompletionDate }),
	"creation_date":     timeField(func(t model.Task) *time.Time { return t.CreationDate }),
	"modification_date": timeField(func(t model.Task) *time.Time { return t.ModificationDate }),
	"estimated_minutes": intField(func(t model.Task) *int { return t.EstimatedMinutes }),
}

var projectSortFields = map[string]sortField[model.Project]{
	"name":              textField(func(p model.Project) string { return p.Name }),
	"due_date":          timeField(func(p model.Project) *time.Time { return p.DueDate }),
	"creation_date":     timeField(func(p model.Project) *time.Time { return p.CreationDate }),
	"modification_date": timeField(func(p model.Project) *time.Time { return p.ModificationDate }),
	"next_review_date":  timeField(func(p model.Project) *time.Time { return p.NextReviewDate }),
}

// sortStable orders records by field, breaking ties by id. A nil field
// keeps input order.
func sortStable[T any](records []T, field *sortField[T], order SortOrder, id func(T) string) {
	if field == nil {
		return
	}
	slices.SortStableFunc(records, func(a, b T) int {
		aPresent, bPresent := field.present(a), field.present(b)
		switch {
		case aPresent && !bPresent:
			return -1
		case !aPresent && bPresent:
			return 1
		case aPresent:
			result := field.compare(a, b)
			if order == Descending {
				result = -result
			}
			if result != 0 {
				return result
			}
		}
		return cmp.Compare(id(a), id(b))
	})
}
