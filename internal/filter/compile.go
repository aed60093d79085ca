package filter

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/script"
)

type predicate[T any] struct {
	name  string
	match func(T) bool
}

// Plan is a compiled task filter: the part OmniFocus evaluates inside the
// script and the residual applied to decoded records.
type Plan struct {
	Scope      script.Scope
	Conditions []string

	residual []predicate[model.Task]
	sort     *sortField[model.Task]
	order    SortOrder
	limit    int
}

// Residual names the predicates evaluated after decoding.
func (p Plan) Residual() []string {
	names := make([]string, 0, len(p.residual))
	for _, predicate := range p.residual {
		names = append(names, predicate.name)
	}
	return names
}

// Apply filters, sorts and limits decoded tasks.
func (p Plan) Apply(tasks []model.Task) []model.Task {
	return apply(tasks, p.residual, p.sort, p.order, p.limit, func(t model.Task) string { return t.ID })
}

func apply[T any](records []T, residual []predicate[T], field *sortField[T], order SortOrder, limit int, id func(T) string) []T {
	out := make([]T, 0, len(records))
	for _, record := range records {
		if matchesAll(record, residual) {
			out = append(out, record)
		}
	}
	sortStable(out, field, order, id)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func matchesAll[T any](record T, residual []predicate[T]) bool {
	for _, predicate := range residual {
		if !predicate.match(record) {
			return false
		}
	}
	return true
}

// Compile splits spec into in-script conditions and residual predicates.
// Relative windows resolve against now.
func Compile(spec Spec, now time.Time) Plan {
	plan := Plan{order: spec.sortOrder, limit: spec.limit}
	if field, ok := taskSortFields[spec.sortBy]; ok {
		plan.sort = &field
	}

	switch {
	case spec.projectID != "":
		plan.Scope = script.Scope{Kind: script.ScopeProject, ID: spec.projectID}
	case spec.parentTaskID != "":
		plan.Scope = script.Scope{Kind: script.ScopeTask, ID: spec.parentTaskID}
	}
	if spec.taskID != "" {
		plan.Conditions = append(plan.Conditions, "id is "+script.Quote(spec.taskID))
	}
	if spec.inboxOnly {
		plan.Conditions = append(plan.Conditions, "in inbox is true")
	}
	if condition := taskStatusCondition(effectiveTaskStatuses(spec)); condition != "" {
		plan.Conditions = append(plan.Conditions, condition)
	}
	if spec.flagged != nil {
		plan.Conditions = append(plan.Conditions, "flagged is "+script.Bool(*spec.flagged))
	}

	add := func(name string, match func(model.Task) bool) {
		plan.residual = append(plan.residual, predicate[model.Task]{name: name, match: match})
	}
	if spec.available != nil {
		add("available", expect(*spec.available, isAvailable(now)))
	}
	if spec.deferred != nil {
		add("deferred", expect(*spec.deferred, isDeferred(now)))
	}
	if spec.hasDueDate != nil {
		add("has_due_date", expect(*spec.hasDueDate, func(t model.Task) bool { return t.DueDate != nil }))
	}
	if len(spec.tags) > 0 {
		add("tags", hasTags(spec.tagMode, spec.tags))
	}
	if spec.untagged != nil {
		add("untagged", expect(*spec.untagged, func(t model.Task) bool { return len(t.Tags) == 0 }))
	}
	if spec.dueRelative != "" {
		add("due_relative", relativeMatch(spec.dueRelative, now, taskDue))
	}
	if spec.deferRelative != "" {
		add("defer_relative", relativeMatch(spec.deferRelative, now, taskDefer))
	}
	if spec.dueBefore != nil {
		add("due_before", before(*spec.dueBefore, taskDue))
	}
	if spec.dueAfter != nil {
		add("due_after", atOrAfter(*spec.dueAfter, taskDue))
	}
	if spec.deferBefore != nil {
		add("defer_before", before(*spec.deferBefore, taskDefer))
	}
	if spec.deferAfter != nil {
		add("defer_after", atOrAfter(*spec.deferAfter, taskDefer))
	}
	if spec.completedAfter != nil {
		add("completed_after", atOrAfter(*spec.completedAfter, func(t model.Task) *time.Time { return t.CompletionDate }))
	}
	if spec.completedBefore != nil {
		add("completed_before", before(*spec.completedBefore, func(t model.Task) *time.Time { return t.CompletionDate }))
	}
	if spec.modifiedAfter != nil {
		add("modified_after", atOrAfter(*spec.modifiedAfter, func(t model.Task) *time.Time { return t.ModificationDate }))
	}
	if spec.query != "" {
		add("query", textMatch(spec.query, func(t model.Task) (string, *string) { return t.Name, t.Note }))
	}
	if spec.maxEstimatedMinutes != nil {
		limit := *spec.maxEstimatedMinutes
		add("max_estimated_minutes", func(t model.Task) bool {
			return t.EstimatedMinutes != nil && *t.EstimatedMinutes <= limit
		})
	}
	return plan
}

// effectiveTaskStatuses defaults to active tasks, or every status when a
// single task is requested by id.
func effectiveTaskStatuses(spec Spec) []model.TaskStatus {
	if len(spec.statuses) > 0 {
		return spec.statuses
	}
	if spec.taskID != "" {
		return nil
	}
	return []model.TaskStatus{model.TaskActive}
}

func taskStatusCondition(statuses []model.TaskStatus) string {
	var fragments []string
	for _, status := range []model.TaskStatus{model.TaskActive, model.TaskCompleted, model.TaskDropped} {
		if !slices.Contains(statuses, status) {
			continue
		}
		switch status {
		case model.TaskActive:
			fragments = append(fragments, "(completed is false and dropped is false)")
		case model.TaskCompleted:
			fragments = append(fragments, "completed is true")
		case model.TaskDropped:
			fragments = append(fragments, "dropped is true")
		}
	}
	switch len(fragments) {
	case 0, 3:
		return ""
	case 1:
		return fragments[0]
	default:
		return "(" + strings.Join(fragments, " or ") + ")"
	}
}

func taskDue(t model.Task) *time.Time   { return t.DueDate }
func taskDefer(t model.Task) *time.Time { return t.DeferDate }

func expect[T any](want bool, match func(T) bool) func(T) bool {
	return func(record T) bool { return match(record) == want }
}

func isDeferred(now time.Time) func(model.Task) bool {
	return func(t model.Task) bool {
		return t.DeferDate != nil && t.DeferDate.After(now)
	}
}

// isAvailable approximates OmniFocus availability: active and not deferred
// into the future.
func isAvailable(now time.Time) func(model.Task) bool {
	deferred := isDeferred(now)
	return func(t model.Task) bool {
		return t.Status == model.TaskActive && !deferred(t)
	}
}

func hasTags(mode TagMode, names []string) func(model.Task) bool {
	wanted := make([]string, 0, len(names))
	for _, name := range names {
		wanted = append(wanted, fold(name))
	}
	return func(t model.Task) bool {
		carried := make(map[string]struct{}, len(t.Tags))
		for _, tag := range t.Tags {
			carried[fold(tag)] = struct{}{}
		}
		matched := 0
		for _, name := range wanted {
			if _, ok := carried[name]; ok {
				matched++
			}
		}
		if mode == TagModeAll {
			return matched == len(wanted)
		}
		return matched > 0
	}
}

func relativeMatch[T any](relative Relative, now time.Time, get func(T) *time.Time) func(T) bool {
	if relative == Overdue {
		return before(now, get)
	}
	window, err := relative.Resolve(now)
	if err != nil {
		return func(T) bool { return false }
	}
	return func(record T) bool {
		value := get(record)
		return value != nil && window.Contains(*value)
	}
}

func before[T any](limit time.Time, get func(T) *time.Time) func(T) bool {
	return func(record T) bool {
		value := get(record)
		return value != nil && value.Before(limit)
	}
}

func atOrAfter[T any](limit time.Time, get func(T) *time.Time) func(T) bool {
	return func(record T) bool {
		value := get(record)
		return value != nil && !value.Before(limit)
	}
}

// fold puts s in the form every text comparison uses: composed, then
// case-folded. Decoded records keep their original text.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// textMatch is a case-folded substring match against the name and the note
// independently.
func textMatch[T any](query string, get func(T) (string, *string)) func(T) bool {
	folded := fold(query)
	return func(record T) bool {
		name, note := get(record)
		if strings.Contains(fold(name), folded) {
			return true
		}
		return note != nil && strings.Contains(fold(*note), folded)
	}
}

// ProjectPlan is a compiled project filter.
type ProjectPlan struct {
	Scope      script.Scope
	Conditions []string

	residual []predicate[model.Project]
	sort     *sortField[model.Project]
	order    SortOrder
	limit    int
}

func (p ProjectPlan) Residual() []string {
	names := make([]string, 0, len(p.residual))
	for _, predicate := range p.residual {
		names = append(names, predicate.name)
	}
	return names
}

func (p ProjectPlan) Apply(projects []model.Project) []model.Project {
	return apply(projects, p.residual, p.sort, p.order, p.limit, func(project model.Project) string { return project.ID })
}

// CompileProjects splits spec like Compile. Without explicit statuses it
// keeps remaining projects (active and on hold), or every status when a
// single project is requested by id.
func CompileProjects(spec ProjectSpec, now time.Time) ProjectPlan {
	plan := ProjectPlan{order: spec.sortOrder, limit: spec.limit}
	if field, ok := projectSortFields[spec.sortBy]; ok {
		plan.sort = &field
	}

	if spec.folderID != "" {
		plan.Scope = script.Scope{Kind: script.ScopeFolder, ID: spec.folderID}
	}
	if spec.projectID != "" {
		plan.Conditions = append(plan.Conditions, "id is "+script.Quote(spec.projectID))
	}
	statuses := spec.statuses
	if len(statuses) == 0 && spec.projectID == "" {
		statuses = []model.ProjectStatus{model.ProjectActive, model.ProjectOnHold}
	}
	if condition := projectStatusCondition(statuses); condition != "" {
		plan.Conditions = append(plan.Conditions, condition)
	}
	if spec.flagged != nil {
		plan.Conditions = append(plan.Conditions, "flagged is "+script.Bool(*spec.flagged))
	}

	add := func(name string, match func(model.Project) bool) {
		plan.residual = append(plan.residual, predicate[model.Project]{name: name, match: match})
	}
	if spec.folderPath != "" {
		prefix := fold(spec.folderPath)
		add("folder_path", func(p model.Project) bool {
			return p.FolderPath != nil && strings.HasPrefix(fold(*p.FolderPath), prefix)
		})
	}
	if spec.query != "" {
		add("query", textMatch(spec.query, func(p model.Project) (string, *string) { return p.Name, p.Note }))
	}
	if spec.needsReview != nil {
		add("needs_review", expect(*spec.needsReview, func(p model.Project) bool {
			return p.NextReviewDate != nil && !p.NextReviewDate.After(now)
		}))
	}
	if spec.sequential != nil {
		want := *spec.sequential
		add("sequential", func(p model.Project) bool { return p.Sequential == want })
	}
	if spec.dueRelative != "" {
		add("due_relative", relativeMatch(spec.dueRelative, now, func(p model.Project) *time.Time { return p.DueDate }))
	}
	return plan
}

func projectStatusCondition(statuses []model.ProjectStatus) string {
	var fragments []string
	for _, status := range []model.ProjectStatus{model.ProjectActive, model.ProjectOnHold, model.ProjectDone, model.ProjectDropped} {
		if slices.Contains(statuses, status) {
			fragments = append(fragments, "status is "+statusConstant(status))
		}
	}
	switch len(fragments) {
	case 0, 4:
		return ""
	case 1:
		return fragments[0]
	default:
		return "(" + strings.Join(fragments, " or ") + ")"
	}
}

func statusConstant(status model.ProjectStatus) string {
	return strings.ReplaceAll(string(status), "_", " ") + " status"
}
