package model

import "time"

type TaskStatus string

const (
	TaskActive    TaskStatus = "active"
	TaskCompleted TaskStatus = "completed"
	TaskDropped   TaskStatus = "dropped"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskActive, TaskCompleted, TaskDropped:
		return true
	}
	return false
}

type ProjectStatus string

const (
	ProjectActive  ProjectStatus = "active"
	ProjectOnHold  ProjectStatus = "on_hold"
	ProjectDone    ProjectStatus = "done"
	ProjectDropped ProjectStatus = "dropped"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectOnHold, ProjectDone, ProjectDropped:
		return true
	}
	return false
}

// RepetitionMethod mirrors OmniFocus' repetition method enumeration.
type RepetitionMethod string

const (
	RepeatFixed                RepetitionMethod = "fixed"
	RepeatStartAfterCompletion RepetitionMethod = "start_after_completion"
	RepeatDueAfterCompletion   RepetitionMethod = "due_after_completion"
)

func (m RepetitionMethod) Valid() bool {
	switch m {
	case RepeatFixed, RepeatStartAfterCompletion, RepeatDueAfterCompletion:
		return true
	}
	return false
}

// RepetitionRule is a recurrence string plus its method. OmniFocus cannot
// construct a rule from nothing: new rules are always cloned from an existing
// rule instance and then mutated.
type RepetitionRule struct {
	Recurrence string           `json:"recurrence"`
	Method     RepetitionMethod `json:"method"`
}

// Task is one OmniFocus action. Exactly one of ProjectID, ParentTaskID and
// InInbox describes its placement.
type Task struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Note             *string         `json:"note"`
	Status           TaskStatus      `json:"status"`
	Flagged          bool            `json:"flagged"`
	DueDate          *time.Time      `json:"due_date"`
	DeferDate        *time.Time      `json:"defer_date"`
	CompletionDate   *time.Time      `json:"completion_date"`
	CreationDate     *time.Time      `json:"creation_date"`
	ModificationDate *time.Time      `json:"modification_date"`
	EstimatedMinutes *int            `json:"estimated_minutes"`
	Tags             []string        `json:"tags"`
	ProjectID        *string         `json:"project_id"`
	ParentTaskID     *string         `json:"parent_task_id"`
	InInbox          bool            `json:"in_inbox"`
	ProjectName      *string         `json:"project_name"`
	RepetitionRule   *RepetitionRule `json:"repetition_rule"`
	HasChildren      bool            `json:"has_children"`
}

// ReviewInterval is a project's review cadence, e.g. 2 weeks.
type ReviewInterval struct {
	Steps int    `json:"steps"`
	Unit  string `json:"unit"`
}

type Project struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Note             *string         `json:"note"`
	Status           ProjectStatus   `json:"status"`
	FolderID         *string         `json:"folder_id"`
	FolderPath       *string         `json:"folder_path"`
	Sequential       bool            `json:"sequential"`
	Flagged          bool            `json:"flagged"`
	DueDate          *time.Time      `json:"due_date"`
	DeferDate        *time.Time      `json:"defer_date"`
	CompletionDate   *time.Time      `json:"completion_date"`
	CreationDate     *time.Time      `json:"creation_date"`
	ModificationDate *time.Time      `json:"modification_date"`
	ReviewInterval   *ReviewInterval `json:"review_interval"`
	LastReviewDate   *time.Time      `json:"last_review_date"`
	NextReviewDate   *time.Time      `json:"next_review_date"`
	TaskCount        int             `json:"task_count"`
	RemainingCount   int             `json:"remaining_count"`
	AvailableCount   int             `json:"available_count"`
	CompletedCount   int             `json:"completed_count"`
}

type Folder struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
	Path     string  `json:"path"`
}

type Tag struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

// FolderPathSeparator joins folder names in Folder.Path and Project.FolderPath.
const FolderPathSeparator = " > "
