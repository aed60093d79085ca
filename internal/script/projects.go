package script

import (
	"strconv"
	"time"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
)

// ProjectInput is the validated field set of a new project. An empty
// FolderID creates the project at the top level.
type ProjectInput struct {
	Name           string
	Note           *string
	FolderID       string
	Status         model.ProjectStatus
	Sequential     bool
	Flagged        bool
	DueDate        *time.Time
	DeferDate      *time.Time
	ReviewInterval *model.ReviewInterval
}

type ProjectChanges struct {
	Name           *string
	Note           model.Optional[string]
	Status         model.ProjectStatus
	FolderID       *string
	Sequential     *bool
	Flagged        *bool
	DueDate        model.Optional[time.Time]
	DeferDate      model.Optional[time.Time]
	ReviewInterval *model.ReviewInterval
	MarkReviewed   bool
}

func itoa(value int) string {
	return strconv.Itoa(value)
}

func statusConstant(status model.ProjectStatus) string {
	switch status {
	case model.ProjectOnHold:
		return "on hold status"
	case model.ProjectDone:
		return "done status"
	case model.ProjectDropped:
		return "dropped status"
	default:
		return "active status"
	}
}

func reviewIntervalLiteral(interval model.ReviewInterval) string {
	return "{unit:" + interval.Unit + ", steps:" + itoa(interval.Steps) + ", fixed:false}"
}

// ReadProjects enumerates the flattened projects of scope filtered by
// conditions.
func ReadProjects(app string, scope Scope, conditions []string) string {
	return document(app, func(w *writer) {
		collection := "flattened projects"
		if scope.Kind == ScopeFolder {
			w.resolve("scope_v", "folder", scope.ID)
			collection = "flattened projects of scope_v"
		}
		w.line("set out_v to {}")
		w.open("repeat with item_v in %s", whose(collection, conditions))
		w.line("set end of out_v to my projectJSON_v(contents of item_v)")
		w.close("end repeat")
		w.line(`return "[" & my joinList_v(out_v, ",") & "]"`)
	})
}

func CreateProject(app string, input ProjectInput) string {
	return document(app, func(w *writer) {
		var props properties
		props.add("name", Quote(input.Name))
		if input.Note != nil {
			props.add("note", Quote(*input.Note))
		}
		if input.Sequential {
			props.add("sequential", "true")
		}
		if input.Flagged {
			props.add("flagged", "true")
		}
		props.addDate("due date", input.DueDate)
		props.addDate("defer date", input.DeferDate)

		if input.FolderID != "" {
			w.resolve("folder_v", "folder", input.FolderID)
			w.line("set newProject_v to make new project at end of projects of folder_v with properties %s", props)
		} else {
			w.line("set newProject_v to make new project with properties %s", props)
		}
		if input.ReviewInterval != nil {
			w.line("set review interval of newProject_v to %s", reviewIntervalLiteral(*input.ReviewInterval))
		}
		if input.Status != "" && input.Status != model.ProjectActive {
			w.line("set status of newProject_v to %s", statusConstant(input.Status))
		}
		w.line("return my projectJSON_v(newProject_v)")
	})
}

// UpdateProject applies changes to one project. MarkReviewed only ever
// moves the last review date forward.
func UpdateProject(app, id string, changes ProjectChanges) string {
	return document(app, func(w *writer) {
		w.resolve("project_v", "project", id)
		if changes.FolderID != nil && *changes.FolderID != "" {
			w.resolve("folder_v", "folder", *changes.FolderID)
		}
		var fields []string
		if changes.Name != nil {
			w.line("set name of project_v to %s", Quote(*changes.Name))
			fields = append(fields, "name")
		}
		if changes.Note.Set {
			w.line("set note of project_v to %s", Quote(changes.Note.Value))
			fields = append(fields, "note")
		}
		if changes.Sequential != nil {
			w.line("set sequential of project_v to %s", Bool(*changes.Sequential))
			fields = append(fields, "sequential")
		}
		if changes.Flagged != nil {
			w.line("set flagged of project_v to %s", Bool(*changes.Flagged))
			fields = append(fields, "flagged")
		}
		if changes.DueDate.Set {
			w.line("set due date of project_v to %s", DateLiteral(changes.DueDate.Ptr()))
			fields = append(fields, "due_date")
		}
		if changes.DeferDate.Set {
			w.line("set defer date of project_v to %s", DateLiteral(changes.DeferDate.Ptr()))
			fields = append(fields, "defer_date")
		}
		if changes.ReviewInterval != nil {
			w.line("set review interval of project_v to %s", reviewIntervalLiteral(*changes.ReviewInterval))
			fields = append(fields, "review_interval")
		}
		if changes.FolderID != nil {
			if *changes.FolderID == "" {
				w.line("move project_v to end of projects")
			} else {
				w.line("move project_v to end of projects of folder_v")
			}
			fields = append(fields, "folder_id")
		}
		if changes.Status != "" {
			w.line("set status of project_v to %s", statusConstant(changes.Status))
			fields = append(fields, "status")
		}
		if changes.MarkReviewed {
			w.line("set now_v to current date")
			w.line("set previous_v to last review date of project_v")
			w.open("if previous_v is missing value or previous_v < now_v then")
			w.line("set last review date of project_v to now_v")
			w.close("end if")
			fields = append(fields, "last_review_date")
		}
		w.line("return %s", updatedLiteral("project_v", fields))
	})
}

// DeleteProject deletes one project with all of its tasks.
func DeleteProject(app, id string) string {
	return document(app, func(w *writer) {
		w.resolve("project_v", "project", id)
		w.line("delete project_v")
		w.line("return %s", jsonLiteral(map[string]any{"id": id, "deleted": true}))
	})
}
