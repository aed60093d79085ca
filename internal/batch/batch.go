// Package batch applies one single-item mutation to many identifiers,
// sequentially and with continue-on-error semantics.
package batch

import (
	"context"
	"fmt"
	"strings"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
)

// UniqueFields must differ per item and are rejected for batch calls.
var UniqueFields = []string{"name", "note"}

// Failure is one identifier the operation could not apply to.
type Failure struct {
	ID    string    `json:"id"`
	Code  errs.Code `json:"code"`
	Error string    `json:"error"`
}

// Result partitions the requested identifiers: every id is in Succeeded or
// Failures, never both.
type Result struct {
	UpdatedCount int       `json:"updated_count"`
	FailedCount  int       `json:"failed_count"`
	Succeeded    []string  `json:"succeeded"`
	Failures     []Failure `json:"failures"`
}

// Total is the number of identifiers attempted.
func (r Result) Total() int {
	return r.UpdatedCount + r.FailedCount
}

// Normalize trims ids and rejects an empty list, blank ids and duplicates.
func Normalize(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, errs.Validation("ids", "at least one id is required")
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for index, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			return nil, errs.Validation("ids", fmt.Sprintf("id at position %d is blank", index))
		}
		if _, dup := seen[trimmed]; dup {
			return nil, errs.Validation("ids", fmt.Sprintf("duplicate id %q", trimmed))
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out, nil
}

// RejectFields fails when any of present is a per-item unique field.
func RejectFields(present ...string) error {
	for _, field := range UniqueFields {
		for _, name := range present {
			if name == field {
				return errs.Validation(field, "cannot be applied to a batch; update items individually")
			}
		}
	}
	return nil
}

// ItemFunc applies the operation to one identifier.
type ItemFunc func(ctx context.Context, id string) error

// Run calls apply for every id in order. Failures are recorded and the loop
// continues; nothing is retried.
func Run(ctx context.Context, ids []string, apply ItemFunc) Result {
	result := Result{Succeeded: []string{}, Failures: []Failure{}}
	for _, id := range ids {
		if err := apply(ctx, id); err != nil {
			result.Failures = append(result.Failures, Failure{ID: id, Code: errs.CodeOf(err), Error: err.Error()})
			result.FailedCount++
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
		result.UpdatedCount++
	}
	return result
}
