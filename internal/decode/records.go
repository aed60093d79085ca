package decode

import (
	"encoding/json"
	"strings"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
)

type rawRepetition struct {
	Recurrence text `json:"recurrence"`
	Method     text `json:"method"`
}

type rawTask struct {
	ID               text            `json:"id"`
	Name             text            `json:"name"`
	Note             optionalText    `json:"note"`
	Completed        bool            `json:"completed"`
	Dropped          bool            `json:"dropped"`
	Flagged          bool            `json:"flagged"`
	DueDate          optionalTime    `json:"due_date"`
	DeferDate        optionalTime    `json:"defer_date"`
	CompletionDate   optionalTime    `json:"completion_date"`
	CreationDate     optionalTime    `json:"creation_date"`
	ModificationDate optionalTime    `json:"modification_date"`
	EstimatedMinutes optionalInt     `json:"estimated_minutes"`
	Tags             []text          `json:"tags"`
	ProjectID        optionalText    `json:"project_id"`
	ProjectName      optionalText    `json:"project_name"`
	ParentTaskID     optionalText    `json:"parent_task_id"`
	InInbox          bool            `json:"in_inbox"`
	RepetitionRule   json.RawMessage `json:"repetition_rule"`
	HasChildren      bool            `json:"has_children"`
}

func (r rawTask) toModel() model.Task {
	task := model.Task{
		ID:               string(r.ID),
		Name:             string(r.Name),
		Note:             r.Note.value,
		Flagged:          r.Flagged,
		DueDate:          r.DueDate.value,
		DeferDate:        r.DeferDate.value,
		CompletionDate:   r.CompletionDate.value,
		CreationDate:     r.CreationDate.value,
		ModificationDate: r.ModificationDate.value,
		EstimatedMinutes: r.EstimatedMinutes.value,
		Tags:             make([]string, 0, len(r.Tags)),
		ProjectName:      r.ProjectName.value,
		RepetitionRule:   repetition(r.RepetitionRule),
		HasChildren:      r.HasChildren,
	}
	for _, tag := range r.Tags {
		task.Tags = append(task.Tags, string(tag))
	}

	switch {
	case r.Dropped:
		task.Status = model.TaskDropped
	case r.Completed:
		task.Status = model.TaskCompleted
	default:
		task.Status = model.TaskActive
	}
	if task.Status != model.TaskCompleted {
		task.CompletionDate = nil
	}

	// A top-level project task reports the project's root task, which shares
	// the project id, as its parent.
	parent, project := r.ParentTaskID.value, r.ProjectID.value
	switch {
	case parent != nil && (project == nil || *parent != *project):
		task.ParentTaskID = parent
	case project != nil:
		task.ProjectID = project
	default:
		task.InInbox = true
	}
	return task
}

func repetition(raw json.RawMessage) *model.RepetitionRule {
	if isAbsent(raw) {
		return nil
	}
	var rule rawRepetition
	if err := json.Unmarshal(raw, &rule); err != nil {
		return nil
	}
	return &model.RepetitionRule{
		Recurrence: string(rule.Recurrence),
		Method:     repetitionMethod(string(rule.Method)),
	}
}

func repetitionMethod(value string) model.RepetitionMethod {
	switch normalizeEnum(value) {
	case "start_after_completion":
		return model.RepeatStartAfterCompletion
	case "due_after_completion":
		return model.RepeatDueAfterCompletion
	default:
		return model.RepeatFixed
	}
}

// normalizeEnum turns an AppleScript constant echo such as "on hold status"
// into its snake_case form.
func normalizeEnum(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	s = strings.TrimSuffix(s, " status")
	s = strings.TrimSuffix(s, " repetition")
	return strings.ReplaceAll(s, " ", "_")
}

func projectStatus(value string) model.ProjectStatus {
	status := model.ProjectStatus(normalizeEnum(value))
	if status == "completed" {
		return model.ProjectDone
	}
	return status
}

type rawReviewInterval struct {
	Steps optionalInt `json:"steps"`
	Unit  text        `json:"unit"`
}

type rawProject struct {
	ID               text            `json:"id"`
	Name             text            `json:"name"`
	Note             optionalText    `json:"note"`
	Status           text            `json:"status"`
	FolderID         optionalText    `json:"folder_id"`
	FolderPath       optionalText    `json:"folder_path"`
	Sequential       bool            `json:"sequential"`
	Flagged          bool            `json:"flagged"`
	DueDate          optionalTime    `json:"due_date"`
	DeferDate        optionalTime    `json:"defer_date"`
	CompletionDate   optionalTime    `json:"completion_date"`
	CreationDate     optionalTime    `json:"creation_date"`
	ModificationDate optionalTime    `json:"modification_date"`
	ReviewInterval   json.RawMessage `json:"review_interval"`
	LastReviewDate   optionalTime    `json:"last_review_date"`
	NextReviewDate   optionalTime    `json:"next_review_date"`
	TaskCount        int             `json:"task_count"`
	RemainingCount   int             `json:"remaining_count"`
	AvailableCount   int             `json:"available_count"`
	CompletedCount   int             `json:"completed_count"`
}

func (r rawProject) toModel() model.Project {
	project := model.Project{
		ID:               string(r.ID),
		Name:             string(r.Name),
		Note:             r.Note.value,
		Status:           projectStatus(string(r.Status)),
		FolderID:         r.FolderID.value,
		FolderPath:       r.FolderPath.value,
		Sequential:       r.Sequential,
		Flagged:          r.Flagged,
		DueDate:          r.DueDate.value,
		DeferDate:        r.DeferDate.value,
		CompletionDate:   r.CompletionDate.value,
		CreationDate:     r.CreationDate.value,
		ModificationDate: r.ModificationDate.value,
		LastReviewDate:   r.LastReviewDate.value,
		NextReviewDate:   r.NextReviewDate.value,
		TaskCount:        r.TaskCount,
		RemainingCount:   r.RemainingCount,
		AvailableCount:   r.AvailableCount,
		CompletedCount:   r.CompletedCount,
	}
	if !isAbsent(r.ReviewInterval) {
		var interval rawReviewInterval
		if err := json.Unmarshal(r.ReviewInterval, &interval); err == nil && interval.Steps.value != nil {
			project.ReviewInterval = &model.ReviewInterval{Steps: *interval.Steps.value, Unit: string(interval.Unit)}
		}
	}
	return project
}

type rawFolder struct {
	ID       text         `json:"id"`
	Name     text         `json:"name"`
	ParentID optionalText `json:"parent_id"`
	Path     text         `json:"path"`
}

func (r rawFolder) toModel() model.Folder {
	return model.Folder{ID: string(r.ID), Name: string(r.Name), ParentID: r.ParentID.value, Path: string(r.Path)}
}

type rawTag struct {
	ID       text         `json:"id"`
	Name     text         `json:"name"`
	ParentID optionalText `json:"parent_id"`
}

func (r rawTag) toModel() model.Tag {
	return model.Tag{ID: string(r.ID), Name: string(r.Name), ParentID: r.ParentID.value}
}
