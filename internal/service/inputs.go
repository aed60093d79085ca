package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/decode"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/filter"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/omnifocus"
)

func decodeParams(rawParams json.RawMessage, destination any) error {
	if len(strings.TrimSpace(string(rawParams))) == 0 {
		rawParams = []byte("{}")
	}
	if err := json.Unmarshal(rawParams, destination); err != nil {
		return errs.Validation("", fmt.Sprintf("invalid params: %v", err))
	}
	return nil
}

// timestamp accepts ISO dates, RFC 3339 and AppleScript date echoes.
type timestamp struct {
	time.Time
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("dates must be strings: %w", err)
	}
	parsed, err := decode.ParseDate(value)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func timePtr(t *timestamp) *time.Time {
	if t == nil {
		return nil
	}
	value := t.Time
	return &value
}

func optionalTime(o model.Optional[timestamp]) model.Optional[time.Time] {
	switch {
	case !o.Set:
		return model.Optional[time.Time]{}
	case o.Null:
		return model.Clear[time.Time]()
	default:
		return model.Some(o.Value.Time)
	}
}

// maxTimeoutSeconds bounds an override before it becomes a Duration. The
// runner's policy applies its own lower cap afterwards.
const maxTimeoutSeconds = float64(24 * time.Hour / time.Second)

// timeoutInput is accepted by every method.
type timeoutInput struct {
	TimeoutSeconds float64 `json:"timeout_seconds"`
}

func (input timeoutInput) options() (omnifocus.CallOptions, error) {
	if input.TimeoutSeconds < 0 || math.IsNaN(input.TimeoutSeconds) {
		return omnifocus.CallOptions{}, errs.Validation("timeout_seconds", "must not be negative")
	}
	seconds := math.Min(input.TimeoutSeconds, maxTimeoutSeconds)
	return omnifocus.CallOptions{Timeout: time.Duration(seconds * float64(time.Second))}, nil
}

type tasksGetInput struct {
	timeoutInput
	TaskID              string             `json:"task_id"`
	ProjectID           string             `json:"project_id"`
	ParentTaskID        string             `json:"parent_task_id"`
	InboxOnly           bool               `json:"inbox_only"`
	Statuses            []model.TaskStatus `json:"statuses"`
	Flagged             *bool              `json:"flagged"`
	Available           *bool              `json:"available"`
	Deferred            *bool              `json:"deferred"`
	HasDueDate          *bool              `json:"has_due_date"`
	Tags                []string           `json:"tags"`
	TagMode             filter.TagMode     `json:"tag_mode"`
	Untagged            *bool              `json:"untagged"`
	DueRelative         filter.Relative    `json:"due_relative"`
	DeferRelative       filter.Relative    `json:"defer_relative"`
	DueBefore           *timestamp         `json:"due_before"`
	DueAfter            *timestamp         `json:"due_after"`
	DeferBefore         *timestamp         `json:"defer_before"`
	DeferAfter          *timestamp         `json:"defer_after"`
	CompletedAfter      *timestamp         `json:"completed_after"`
	CompletedBefore     *timestamp         `json:"completed_before"`
	ModifiedAfter       *timestamp         `json:"modified_after"`
	Query               string             `json:"query"`
	MaxEstimatedMinutes *int               `json:"max_estimated_minutes"`
	SortBy              string             `json:"sort_by"`
	SortOrder           filter.SortOrder   `json:"sort_order"`
	Limit               int                `json:"limit"`
}

func (input tasksGetInput) spec() (filter.Spec, error) {
	builder := filter.NewBuilder().
		TaskID(input.TaskID).
		ProjectID(input.ProjectID).
		ParentTaskID(input.ParentTaskID).
		InboxOnly(input.InboxOnly).
		Statuses(input.Statuses...).
		Tags(input.TagMode, input.Tags...).
		DueRelative(input.DueRelative).
		DeferRelative(input.DeferRelative).
		Query(input.Query).
		SortBy(input.SortBy, input.SortOrder).
		Limit(input.Limit)

	flags := []struct {
		value *bool
		apply func(bool) *filter.Builder
	}{
		{input.Flagged, builder.Flagged},
		{input.Available, builder.Available},
		{input.Deferred, builder.Deferred},
		{input.HasDueDate, builder.HasDueDate},
		{input.Untagged, builder.Untagged},
	}
	for _, flag := range flags {
		if flag.value != nil {
			flag.apply(*flag.value)
		}
	}

	dates := []struct {
		value *timestamp
		apply func(time.Time) *filter.Builder
	}{
		{input.DueBefore, builder.DueBefore},
		{input.DueAfter, builder.DueAfter},
		{input.DeferBefore, builder.DeferBefore},
		{input.DeferAfter, builder.DeferAfter},
		{input.CompletedAfter, builder.CompletedAfter},
		{input.CompletedBefore, builder.CompletedBefore},
		{input.ModifiedAfter, builder.ModifiedAfter},
	}
	for _, date := range dates {
		if date.value != nil {
			date.apply(date.value.Time)
		}
	}
	if input.MaxEstimatedMinutes != nil {
		builder.MaxEstimatedMinutes(*input.MaxEstimatedMinutes)
	}
	return builder.Build()
}

type taskCreateInput struct {
	timeoutInput
	Name             string                `json:"name"`
	Note             *string               `json:"note"`
	Flagged          bool                  `json:"flagged"`
	DueDate          *timestamp            `json:"due_date"`
	DeferDate        *timestamp            `json:"defer_date"`
	EstimatedMinutes *int                  `json:"estimated_minutes"`
	Tags             []string              `json:"tags"`
	ProjectID        string                `json:"project_id"`
	ParentTaskID     string                `json:"parent_task_id"`
	RepetitionRule   *model.RepetitionRule `json:"repetition_rule"`
}

func (input taskCreateInput) task() omnifocus.TaskInput {
	return omnifocus.TaskInput{
		Name:             input.Name,
		Note:             input.Note,
		Flagged:          input.Flagged,
		DueDate:          timePtr(input.DueDate),
		DeferDate:        timePtr(input.DeferDate),
		EstimatedMinutes: input.EstimatedMinutes,
		Tags:             input.Tags,
		ProjectID:        input.ProjectID,
		ParentTaskID:     input.ParentTaskID,
		Repetition:       input.RepetitionRule,
	}
}

// taskChangesInput is the partial field set shared by tasks.update and
// tasks.update_batch. A JSON null clears an optional field.
type taskChangesInput struct {
	Name             *string                              `json:"name"`
	Note             model.Optional[string]               `json:"note"`
	Flagged          *bool                                `json:"flagged"`
	Status           model.TaskStatus                     `json:"status"`
	DueDate          model.Optional[timestamp]            `json:"due_date"`
	DeferDate        model.Optional[timestamp]            `json:"defer_date"`
	EstimatedMinutes model.Optional[int]                  `json:"estimated_minutes"`
	Tags             model.Optional[[]string]             `json:"tags"`
	AddTags          []string                             `json:"add_tags"`
	RemoveTags       []string                             `json:"remove_tags"`
	ProjectID        *string                              `json:"project_id"`
	ParentTaskID     *string                              `json:"parent_task_id"`
	Inbox            *bool                                `json:"inbox"`
	RepetitionRule   model.Optional[model.RepetitionRule] `json:"repetition_rule"`
}

func (input taskChangesInput) changes() omnifocus.TaskChanges {
	changes := omnifocus.TaskChanges{
		Name:             input.Name,
		Note:             input.Note,
		Flagged:          input.Flagged,
		Status:           input.Status,
		DueDate:          optionalTime(input.DueDate),
		DeferDate:        optionalTime(input.DeferDate),
		EstimatedMinutes: input.EstimatedMinutes,
		Tags:             input.Tags,
		AddTags:          input.AddTags,
		RemoveTags:       input.RemoveTags,
		Repetition:       input.RepetitionRule,
	}
	if input.ProjectID != nil || input.ParentTaskID != nil || (input.Inbox != nil && *input.Inbox) {
		move := &omnifocus.Placement{Inbox: input.Inbox != nil && *input.Inbox}
		if input.ProjectID != nil {
			move.ProjectID = *input.ProjectID
		}
		if input.ParentTaskID != nil {
			move.ParentTaskID = *input.ParentTaskID
		}
		changes.Move = move
	}
	return changes
}

type taskUpdateInput struct {
	timeoutInput
	taskChangesInput
	TaskID string `json:"task_id"`
}

type taskBatchUpdateInput struct {
	timeoutInput
	taskChangesInput
	TaskIDs model.IDList `json:"task_ids"`
}

type taskDeleteInput struct {
	timeoutInput
	TaskIDs model.IDList `json:"task_ids"`
}

type taskReorderInput struct {
	timeoutInput
	TaskID       string `json:"task_id"`
	BeforeTaskID string `json:"before_task_id"`
	AfterTaskID  string `json:"after_task_id"`
	Position     string `json:"position"`
}

type projectsGetInput struct {
	timeoutInput
	ProjectID   string                `json:"project_id"`
	FolderID    string                `json:"folder_id"`
	Statuses    []model.ProjectStatus `json:"statuses"`
	Flagged     *bool                 `json:"flagged"`
	FolderPath  string                `json:"folder_path"`
	Query       string                `json:"query"`
	NeedsReview *bool                 `json:"needs_review"`
	Sequential  *bool                 `json:"sequential"`
	DueRelative filter.Relative       `json:"due_relative"`
	SortBy      string                `json:"sort_by"`
	SortOrder   filter.SortOrder      `json:"sort_order"`
	Limit       int                   `json:"limit"`
}

func (input projectsGetInput) spec() (filter.ProjectSpec, error) {
	builder := filter.NewProjectBuilder().
		ProjectID(input.ProjectID).
		FolderID(input.FolderID).
		Statuses(input.Statuses...).
		FolderPath(input.FolderPath).
		Query(input.Query).
		DueRelative(input.DueRelative).
		SortBy(input.SortBy, input.SortOrder).
		Limit(input.Limit)
	if input.Flagged != nil {
		builder.Flagged(*input.Flagged)
	}
	if input.NeedsReview != nil {
		builder.NeedsReview(*input.NeedsReview)
	}
	if input.Sequential != nil {
		builder.Sequential(*input.Sequential)
	}
	return builder.Build()
}

type projectCreateInput struct {
	timeoutInput
	Name           string                `json:"name"`
	Note           *string               `json:"note"`
	FolderID       string                `json:"folder_id"`
	Status         model.ProjectStatus   `json:"status"`
	Sequential     bool                  `json:"sequential"`
	Flagged        bool                  `json:"flagged"`
	DueDate        *timestamp            `json:"due_date"`
	DeferDate      *timestamp            `json:"defer_date"`
	ReviewInterval *model.ReviewInterval `json:"review_interval"`
}

func (input projectCreateInput) project() omnifocus.ProjectInput {
	return omnifocus.ProjectInput{
		Name:           input.Name,
		Note:           input.Note,
		FolderID:       input.FolderID,
		Status:         input.Status,
		Sequential:     input.Sequential,
		Flagged:        input.Flagged,
		DueDate:        timePtr(input.DueDate),
		DeferDate:      timePtr(input.DeferDate),
		ReviewInterval: input.ReviewInterval,
	}
}

type projectChangesInput struct {
	Name           *string                   `json:"name"`
	Note           model.Optional[string]    `json:"note"`
	Status         model.ProjectStatus       `json:"status"`
	FolderID       *string                   `json:"folder_id"`
	Sequential     *bool                     `json:"sequential"`
	Flagged        *bool                     `json:"flagged"`
	DueDate        model.Optional[timestamp] `json:"due_date"`
	DeferDate      model.Optional[timestamp] `json:"defer_date"`
	ReviewInterval *model.ReviewInterval     `json:"review_interval"`
	MarkReviewed   bool                      `json:"mark_reviewed"`
}

func (input projectChangesInput) changes() omnifocus.ProjectChanges {
	return omnifocus.ProjectChanges{
		Name:           input.Name,
		Note:           input.Note,
		Status:         input.Status,
		FolderID:       input.FolderID,
		Sequential:     input.Sequential,
		Flagged:        input.Flagged,
		DueDate:        optionalTime(input.DueDate),
		DeferDate:      optionalTime(input.DeferDate),
		ReviewInterval: input.ReviewInterval,
		MarkReviewed:   input.MarkReviewed,
	}
}

type projectUpdateInput struct {
	timeoutInput
	projectChangesInput
	ProjectID string `json:"project_id"`
}

type projectBatchUpdateInput struct {
	timeoutInput
	projectChangesInput
	ProjectIDs model.IDList `json:"project_ids"`
}

type projectDeleteInput struct {
	timeoutInput
	ProjectIDs model.IDList `json:"project_ids"`
}

type containerCreateInput struct {
	timeoutInput
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
}

type journalRecentInput struct {
	Limit int `json:"limit"`
}
