// Package filter compiles read filters into in-script whose-clause
// fragments plus a residual predicate applied to decoded records. Every
// predicate has exactly one evaluation point.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
)

type TagMode string

const (
	// TagModeAll requires every requested tag.
	TagModeAll TagMode = "and"
	// TagModeAny requires at least one requested tag.
	TagModeAny TagMode = "or"
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Spec is an immutable task filter. Build one with Builder.
type Spec struct {
	taskID       string
	projectID    string
	parentTaskID string
	inboxOnly    bool
	statuses     []model.TaskStatus
	flagged      *bool

	available           *bool
	deferred            *bool
	hasDueDate          *bool
	tags                []string
	tagMode             TagMode
	untagged            *bool
	dueRelative         Relative
	deferRelative       Relative
	dueBefore           *time.Time
	dueAfter            *time.Time
	deferBefore         *time.Time
	deferAfter          *time.Time
	completedAfter      *time.Time
	completedBefore     *time.Time
	modifiedAfter       *time.Time
	query               string
	maxEstimatedMinutes *int

	sortBy    string
	sortOrder SortOrder
	limit     int
}

// Builder accumulates a Spec. The first invalid value is reported by Build.
type Builder struct {
	spec Spec
	err  error
}

func NewBuilder() *Builder {
	return &Builder{spec: Spec{tagMode: TagModeAny, sortOrder: Ascending}}
}

func (b *Builder) fail(field, reason string) *Builder {
	if b.err == nil {
		b.err = errs.Validation(field, reason)
	}
	return b
}

func (b *Builder) TaskID(id string) *Builder {
	b.spec.taskID = strings.TrimSpace(id)
	return b
}

func (b *Builder) ProjectID(id string) *Builder {
	b.spec.projectID = strings.TrimSpace(id)
	return b
}

func (b *Builder) ParentTaskID(id string) *Builder {
	b.spec.parentTaskID = strings.TrimSpace(id)
	return b
}

func (b *Builder) InboxOnly(inbox bool) *Builder {
	b.spec.inboxOnly = inbox
	return b
}

func (b *Builder) Statuses(statuses ...model.TaskStatus) *Builder {
	for _, status := range statuses {
		if !status.Valid() {
			return b.fail("statuses", fmt.Sprintf("unknown task status %q", status))
		}
	}
	b.spec.statuses = append([]model.TaskStatus(nil), statuses...)
	return b
}

func (b *Builder) Flagged(flagged bool) *Builder {
	b.spec.flagged = &flagged
	return b
}

func (b *Builder) Available(available bool) *Builder {
	b.spec.available = &available
	return b
}

// Deferred keeps tasks blocked by a future defer date (or excludes them).
func (b *Builder) Deferred(deferred bool) *Builder {
	b.spec.deferred = &deferred
	return b
}

func (b *Builder) HasDueDate(has bool) *Builder {
	b.spec.hasDueDate = &has
	return b
}

func (b *Builder) Tags(mode TagMode, names ...string) *Builder {
	if mode == "" {
		mode = TagModeAny
	}
	if mode != TagModeAll && mode != TagModeAny {
		return b.fail("tag_mode", fmt.Sprintf("must be %q or %q", TagModeAll, TagModeAny))
	}
	b.spec.tagMode = mode
	b.spec.tags = nil
	for _, name := range names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			b.spec.tags = append(b.spec.tags, trimmed)
		}
	}
	return b
}

func (b *Builder) Untagged(untagged bool) *Builder {
	b.spec.untagged = &untagged
	return b
}

func (b *Builder) DueRelative(relative Relative) *Builder {
	if relative != "" && !relative.valid(true) {
		return b.fail("due_relative", fmt.Sprintf("unknown window %q", relative))
	}
	b.spec.dueRelative = relative
	return b
}

func (b *Builder) DeferRelative(relative Relative) *Builder {
	if relative != "" && !relative.valid(false) {
		return b.fail("defer_relative", fmt.Sprintf("unknown window %q", relative))
	}
	b.spec.deferRelative = relative
	return b
}

func (b *Builder) DueBefore(t time.Time) *Builder       { b.spec.dueBefore = &t; return b }
func (b *Builder) DueAfter(t time.Time) *Builder        { b.spec.dueAfter = &t; return b }
func (b *Builder) DeferBefore(t time.Time) *Builder     { b.spec.deferBefore = &t; return b }
func (b *Builder) DeferAfter(t time.Time) *Builder      { b.spec.deferAfter = &t; return b }
func (b *Builder) CompletedAfter(t time.Time) *Builder  { b.spec.completedAfter = &t; return b }
func (b *Builder) CompletedBefore(t time.Time) *Builder { b.spec.completedBefore = &t; return b }
func (b *Builder) ModifiedAfter(t time.Time) *Builder   { b.spec.modifiedAfter = &t; return b }

// Query matches a case-insensitive substring of the name or the note.
func (b *Builder) Query(query string) *Builder {
	b.spec.query = strings.TrimSpace(query)
	return b
}

func (b *Builder) MaxEstimatedMinutes(minutes int) *Builder {
	if minutes < 0 {
		return b.fail("max_estimated_minutes", "must not be negative")
	}
	b.spec.maxEstimatedMinutes = &minutes
	return b
}

func (b *Builder) SortBy(key string, order SortOrder) *Builder {
	if key != "" {
		if _, ok := taskSortFields[key]; !ok {
			return b.fail("sort_by", fmt.Sprintf("unknown sort key %q", key))
		}
	}
	if order == "" {
		order = Ascending
	}
	if order != Ascending && order != Descending {
		return b.fail("sort_order", fmt.Sprintf("must be %q or %q", Ascending, Descending))
	}
	b.spec.sortBy = key
	b.spec.sortOrder = order
	return b
}

// Limit caps the result count after sorting. Zero means unlimited.
func (b *Builder) Limit(limit int) *Builder {
	if limit < 0 {
		return b.fail("limit", "must not be negative")
	}
	b.spec.limit = limit
	return b
}

func (b *Builder) Build() (Spec, error) {
	if b.err != nil {
		return Spec{}, b.err
	}
	spec := b.spec
	scopes := 0
	for _, set := range []bool{spec.projectID != "", spec.parentTaskID != "", spec.inboxOnly} {
		if set {
			scopes++
		}
	}
	if scopes > 1 {
		return Spec{}, errs.Validation("project_id", "project_id, parent_task_id and inbox_only are mutually exclusive")
	}
	if spec.untagged != nil && *spec.untagged && len(spec.tags) > 0 {
		return Spec{}, errs.Validation("untagged", "cannot be combined with tags")
	}
	if spec.dueBefore != nil && spec.dueAfter != nil && !spec.dueAfter.Before(*spec.dueBefore) {
		return Spec{}, errs.Validation("due_after", "must be before due_before")
	}
	spec.statuses = append([]model.TaskStatus(nil), spec.statuses...)
	spec.tags = append([]string(nil), spec.tags...)
	return spec, nil
}

// TaskID returns the single task the filter targets, if any.
func (s Spec) TaskID() string {
	return s.taskID
}
