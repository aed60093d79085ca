package filter

import (
	"fmt"
	"strings"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
)

// ProjectSpec is an immutable project filter. Build one with
// ProjectBuilder.
type ProjectSpec struct {
	projectID string
	folderID  string
	statuses  []model.ProjectStatus
	flagged   *bool

	folderPath  string
	query       string
	needsReview *bool
	sequential  *bool
	dueRelative Relative

	sortBy    string
	sortOrder SortOrder
	limit     int
}

type ProjectBuilder struct {
	spec ProjectSpec
	err  error
}

func NewProjectBuilder() *ProjectBuilder {
	return &ProjectBuilder{spec: ProjectSpec{sortOrder: Ascending}}
}

func (b *ProjectBuilder) fail(field, reason string) *ProjectBuilder {
	if b.err == nil {
		b.err = errs.Validation(field, reason)
	}
	return b
}

func (b *ProjectBuilder) ProjectID(id string) *ProjectBuilder {
	b.spec.projectID = strings.TrimSpace(id)
	return b
}

func (b *ProjectBuilder) FolderID(id string) *ProjectBuilder {
	b.spec.folderID = strings.TrimSpace(id)
	return b
}

func (b *ProjectBuilder) Statuses(statuses ...model.ProjectStatus) *ProjectBuilder {
	for _, status := range statuses {
		if !status.Valid() {
			return b.fail("statuses", fmt.Sprintf("unknown project status %q", status))
		}
	}
	b.spec.statuses = append([]model.ProjectStatus(nil), statuses...)
	return b
}

func (b *ProjectBuilder) Flagged(flagged bool) *ProjectBuilder {
	b.spec.flagged = &flagged
	return b
}

// FolderPath keeps projects whose folder path starts with prefix, compared
// case-insensitively.
func (b *ProjectBuilder) FolderPath(prefix string) *ProjectBuilder {
	b.spec.folderPath = strings.TrimSpace(prefix)
	return b
}

func (b *ProjectBuilder) Query(query string) *ProjectBuilder {
	b.spec.query = strings.TrimSpace(query)
	return b
}

// NeedsReview keeps projects whose next review date is at or before now.
func (b *ProjectBuilder) NeedsReview(needs bool) *ProjectBuilder {
	b.spec.needsReview = &needs
	return b
}

func (b *ProjectBuilder) Sequential(sequential bool) *ProjectBuilder {
	b.spec.sequential = &sequential
	return b
}

func (b *ProjectBuilder) DueRelative(relative Relative) *ProjectBuilder {
	if relative != "" && !relative.valid(true) {
		return b.fail("due_relative", fmt.Sprintf("unknown window %q", relative))
	}
	b.spec.dueRelative = relative
	return b
}

func (b *ProjectBuilder) SortBy(key string, order SortOrder) *ProjectBuilder {
	if key != "" {
		if _, ok := projectSortFields[key]; !ok {
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

func (b *ProjectBuilder) Limit(limit int) *ProjectBuilder {
	if limit < 0 {
		return b.fail("limit", "must not be negative")
	}
	b.spec.limit = limit
	return b
}

func (b *ProjectBuilder) Build() (ProjectSpec, error) {
	if b.err != nil {
		return ProjectSpec{}, b.err
	}
	spec := b.spec
	spec.statuses = append([]model.ProjectStatus(nil), spec.statuses...)
	return spec, nil
}

// ProjectID returns the single project the filter targets, if any.
func (s ProjectSpec) ProjectID() string {
	return s.projectID
}
