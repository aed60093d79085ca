package script

import (
	"time"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
)

// TaskInput is the validated field set of a new task. At most one of
// ProjectID and ParentTaskID is set; neither means the inbox.
type TaskInput struct {
	Name             string
	Note             *string
	Flagged          bool
	DueDate          *time.Time
	DeferDate        *time.Time
	EstimatedMinutes *int
	Tags             []string
	ProjectID        string
	ParentTaskID     string
	Repetition       *model.RepetitionRule
}

// Placement is a move destination. Inbox wins when set.
type Placement struct {
	ProjectID    string
	ParentTaskID string
	Inbox        bool
}

// TaskChanges is a partial update. Unset fields are left alone; a null
// Optional clears the field.
type TaskChanges struct {
	Name             *string
	Note             model.Optional[string]
	Flagged          *bool
	Status           model.TaskStatus
	DueDate          model.Optional[time.Time]
	DeferDate        model.Optional[time.Time]
	EstimatedMinutes model.Optional[int]
	Tags             model.Optional[[]string]
	AddTags          []string
	RemoveTags       []string
	Move             *Placement
	Repetition       model.Optional[model.RepetitionRule]
}

// Anchor is a reorder target: before or after a sibling, or the beginning
// or end of the task's current container.
type Anchor struct {
	BeforeTaskID string
	AfterTaskID  string
	Position     string
}

// ReadTasks enumerates the flattened tasks of scope filtered by the given
// whose-clause conditions and returns them as a JSON array.
func ReadTasks(app string, scope Scope, conditions []string) string {
	return document(app, func(w *writer) {
		collection := "flattened tasks"
		if scope.Kind != ScopeDocument {
			w.resolve("scope_v", scope.class(), scope.ID)
			collection = "flattened tasks of scope_v"
		}
		w.line("set out_v to {}")
		w.open("repeat with item_v in %s", whose(collection, conditions))
		w.line("set end of out_v to my taskJSON_v(contents of item_v)")
		w.close("end repeat")
		w.line(`return "[" & my joinList_v(out_v, ",") & "]"`)
	})
}

func taskProperties(input TaskInput) properties {
	var props properties
	props.add("name", Quote(input.Name))
	if input.Note != nil {
		props.add("note", Quote(*input.Note))
	}
	if input.Flagged {
		props.add("flagged", "true")
	}
	props.addDate("due date", input.DueDate)
	props.addDate("defer date", input.DeferDate)
	if input.EstimatedMinutes != nil {
		props.add("estimated minutes", itoa(*input.EstimatedMinutes))
	}
	return props
}

// CreateTask creates a task in the inbox, a project or under a parent task
// and returns its canonical record.
func CreateTask(app string, input TaskInput) string {
	return document(app, func(w *writer) {
		switch {
		case input.ParentTaskID != "":
			w.resolve("container_v", "task", input.ParentTaskID)
		case input.ProjectID != "":
			w.resolve("container_v", "project", input.ProjectID)
		}
		if input.Repetition != nil {
			w.repetitionTemplate("")
		}
		props := taskProperties(input)
		if input.ParentTaskID != "" || input.ProjectID != "" {
			w.line("set newTask_v to make new task at end of tasks of container_v with properties %s", props)
		} else {
			w.line("set newTask_v to make new inbox task with properties %s", props)
		}
		for _, name := range input.Tags {
			w.ensureTag(name)
			w.line("add tagRef_v to tags of newTask_v")
		}
		if input.Repetition != nil {
			w.applyRepetition("newTask_v", *input.Repetition)
		}
		w.line("return my taskJSON_v(newTask_v)")
	})
}

// UpdateTask applies changes to one task. Completion and dropping are
// guarded so repeating them keeps the original timestamps.
func UpdateTask(app, id string, changes TaskChanges) string {
	return document(app, func(w *writer) {
		w.resolve("task_v", "task", id)
		var fields []string
		if changes.Move != nil && !changes.Move.Inbox {
			if changes.Move.ParentTaskID != "" {
				w.resolve("destination_v", "task", changes.Move.ParentTaskID)
			} else {
				w.resolve("destination_v", "project", changes.Move.ProjectID)
			}
		}
		if changes.Repetition.Set && !changes.Repetition.Null {
			w.repetitionTemplate("task_v")
		}

		if changes.Name != nil {
			w.line("set name of task_v to %s", Quote(*changes.Name))
			fields = append(fields, "name")
		}
		if changes.Note.Set {
			w.line("set note of task_v to %s", Quote(changes.Note.Value))
			fields = append(fields, "note")
		}
		if changes.Flagged != nil {
			w.line("set flagged of task_v to %s", Bool(*changes.Flagged))
			fields = append(fields, "flagged")
		}
		if changes.DueDate.Set {
			w.line("set due date of task_v to %s", DateLiteral(changes.DueDate.Ptr()))
			fields = append(fields, "due_date")
		}
		if changes.DeferDate.Set {
			w.line("set defer date of task_v to %s", DateLiteral(changes.DeferDate.Ptr()))
			fields = append(fields, "defer_date")
		}
		if changes.EstimatedMinutes.Set {
			estimate := MissingValue
			if minutes := changes.EstimatedMinutes.Ptr(); minutes != nil {
				estimate = itoa(*minutes)
			}
			w.line("set estimated minutes of task_v to %s", estimate)
			fields = append(fields, "estimated_minutes")
		}

		if changes.Tags.Set {
			w.line("set existing_v to tags of task_v")
			w.open("repeat with tagRef_v in existing_v")
			w.line("remove (contents of tagRef_v) from tags of task_v")
			w.close("end repeat")
			for _, name := range changes.Tags.Value {
				w.ensureTag(name)
				w.line("add tagRef_v to tags of task_v")
			}
			fields = append(fields, "tags")
		}
		for _, name := range changes.AddTags {
			w.ensureTag(name)
			w.line("add tagRef_v to tags of task_v")
		}
		if len(changes.AddTags) > 0 {
			fields = append(fields, "add_tags")
		}
		for _, name := range changes.RemoveTags {
			w.line("set tagMatches_v to (tags of task_v whose name is %s)", Quote(name))
			w.open("if (count of tagMatches_v) > 0 then")
			w.line("remove (item 1 of tagMatches_v) from tags of task_v")
			w.close("end if")
		}
		if len(changes.RemoveTags) > 0 {
			fields = append(fields, "remove_tags")
		}

		if changes.Move != nil {
			if changes.Move.Inbox {
				w.line("move task_v to end of inbox tasks")
			} else {
				w.line("move task_v to end of tasks of destination_v")
			}
			fields = append(fields, "placement")
		}

		if changes.Repetition.Set {
			if changes.Repetition.Null {
				w.line("set repetition rule of task_v to missing value")
			} else {
				w.applyRepetition("task_v", changes.Repetition.Value)
			}
			fields = append(fields, "repetition_rule")
		}

		switch changes.Status {
		case model.TaskCompleted:
			w.line("if completed of task_v is false then mark complete task_v")
		case model.TaskDropped:
			w.line("if dropped of task_v is false then mark dropped task_v")
		case model.TaskActive:
			w.line("if completed of task_v is true or dropped of task_v is true then mark incomplete task_v")
		}
		if changes.Status != "" {
			fields = append(fields, "status")
		}

		w.line("return %s", updatedLiteral("task_v", fields))
	})
}

// DeleteTask deletes one task and its subtasks.
func DeleteTask(app, id string) string {
	return document(app, func(w *writer) {
		w.resolve("task_v", "task", id)
		w.line("delete task_v")
		w.line("return %s", jsonLiteral(map[string]any{"id": id, "deleted": true}))
	})
}

// ReorderTask moves a task relative to a sibling or to an end of its
// current container.
func ReorderTask(app, id string, anchor Anchor) string {
	return document(app, func(w *writer) {
		w.resolve("task_v", "task", id)
		switch {
		case anchor.BeforeTaskID != "":
			w.resolve("anchor_v", "task", anchor.BeforeTaskID)
			w.line("move task_v to before anchor_v")
		case anchor.AfterTaskID != "":
			w.resolve("anchor_v", "task", anchor.AfterTaskID)
			w.line("move task_v to after anchor_v")
		default:
			edge := "end"
			if anchor.Position == "beginning" {
				edge = "beginning"
			}
			w.line("set parent_v to parent task of task_v")
			w.open("if parent_v is missing value then")
			w.line("move task_v to %s of inbox tasks", edge)
			w.orElse()
			w.line("move task_v to %s of tasks of parent_v", edge)
			w.close("end if")
		}
		w.line("return %s", jsonLiteral(map[string]any{"id": id, "moved": true}))
	})
}
