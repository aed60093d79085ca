package omnifocus

import (
	"fmt"
	"strings"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/script"
)

var reviewUnits = map[string]struct{}{
	"day":   {},
	"week":  {},
	"month": {},
	"year":  {},
}

func requireID(field, id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", errs.Validation(field, "is required")
	}
	return trimmed, nil
}

func requireName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", errs.Validation("name", "must not be empty")
	}
	return name, nil
}

// placement resolves a project/parent pair. A parent equal to the project
// id is the project's root task and means the project itself.
func placement(projectID, parentTaskID string) (string, string, error) {
	projectID = strings.TrimSpace(projectID)
	parentTaskID = strings.TrimSpace(parentTaskID)
	if parentTaskID != "" && parentTaskID == projectID {
		return projectID, "", nil
	}
	if projectID != "" && parentTaskID != "" {
		return "", "", errs.Validation("parent_task_id", "cannot be combined with project_id")
	}
	return projectID, parentTaskID, nil
}

func validEstimate(minutes *int) error {
	if minutes != nil && *minutes < 0 {
		return errs.Validation("estimated_minutes", "must not be negative")
	}
	return nil
}

func validRepetition(rule *model.RepetitionRule) error {
	if rule == nil {
		return nil
	}
	if strings.TrimSpace(rule.Recurrence) == "" {
		return errs.Validation("repetition_rule", "recurrence is required")
	}
	if rule.Method == "" {
		rule.Method = model.RepeatFixed
	}
	if !rule.Method.Valid() {
		return errs.Validation("repetition_rule", fmt.Sprintf("unknown repetition method %q", rule.Method))
	}
	return nil
}

func validReviewInterval(interval *model.ReviewInterval) error {
	if interval == nil {
		return nil
	}
	if interval.Steps <= 0 {
		return errs.Validation("review_interval", "steps must be positive")
	}
	interval.Unit = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(interval.Unit)), "s")
	if _, ok := reviewUnits[interval.Unit]; !ok {
		return errs.Validation("review_interval", fmt.Sprintf("unknown unit %q", interval.Unit))
	}
	return nil
}

func cleanTags(field string, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, errs.Validation(field, "tag names must not be blank")
		}
		out = append(out, trimmed)
	}
	return out, nil
}

func validateTaskInput(input *script.TaskInput) error {
	name, err := requireName(input.Name)
	if err != nil {
		return err
	}
	input.Name = name
	if input.ProjectID, input.ParentTaskID, err = placement(input.ProjectID, input.ParentTaskID); err != nil {
		return err
	}
	if err := validEstimate(input.EstimatedMinutes); err != nil {
		return err
	}
	if input.Tags, err = cleanTags("tags", input.Tags); err != nil {
		return err
	}
	return validRepetition(input.Repetition)
}

// taskChangeFields lists the request fields present in changes, named as
// the caller sends them.
func taskChangeFields(changes script.TaskChanges) []string {
	var fields []string
	if changes.Name != nil {
		fields = append(fields, "name")
	}
	if changes.Note.Set {
		fields = append(fields, "note")
	}
	if changes.Flagged != nil {
		fields = append(fields, "flagged")
	}
	if changes.Status != "" {
		fields = append(fields, "status")
	}
	if changes.DueDate.Set {
		fields = append(fields, "due_date")
	}
	if changes.DeferDate.Set {
		fields = append(fields, "defer_date")
	}
	if changes.EstimatedMinutes.Set {
		fields = append(fields, "estimated_minutes")
	}
	if changes.Tags.Set {
		fields = append(fields, "tags")
	}
	if len(changes.AddTags) > 0 {
		fields = append(fields, "add_tags")
	}
	if len(changes.RemoveTags) > 0 {
		fields = append(fields, "remove_tags")
	}
	if changes.Move != nil {
		fields = append(fields, "placement")
	}
	if changes.Repetition.Set {
		fields = append(fields, "repetition_rule")
	}
	return fields
}

func validateTaskChanges(changes *script.TaskChanges) error {
	if len(taskChangeFields(*changes)) == 0 {
		return errs.Validation("", "no fields to update")
	}
	if changes.Name != nil {
		if _, err := requireName(*changes.Name); err != nil {
			return err
		}
	}
	if changes.Status != "" && !changes.Status.Valid() {
		return errs.Validation("status", fmt.Sprintf("unknown task status %q", changes.Status))
	}
	if err := validEstimate(changes.EstimatedMinutes.Ptr()); err != nil {
		return err
	}
	if changes.Tags.Set && (len(changes.AddTags) > 0 || len(changes.RemoveTags) > 0) {
		return errs.Validation("tags", "cannot be combined with add_tags or remove_tags")
	}
	var err error
	if changes.Tags.Set && !changes.Tags.Null {
		if changes.Tags.Value, err = cleanTags("tags", changes.Tags.Value); err != nil {
			return err
		}
	}
	if changes.AddTags, err = cleanTags("add_tags", changes.AddTags); err != nil {
		return err
	}
	if changes.RemoveTags, err = cleanTags("remove_tags", changes.RemoveTags); err != nil {
		return err
	}
	if changes.Move != nil {
		move := changes.Move
		if move.ProjectID, move.ParentTaskID, err = placement(move.ProjectID, move.ParentTaskID); err != nil {
			return err
		}
		if move.Inbox && (move.ProjectID != "" || move.ParentTaskID != "") {
			return errs.Validation("inbox", "cannot be combined with project_id or parent_task_id")
		}
		if !move.Inbox && move.ProjectID == "" && move.ParentTaskID == "" {
			return errs.Validation("placement", "a move needs project_id, parent_task_id or inbox")
		}
	}
	if changes.Repetition.Set && !changes.Repetition.Null {
		rule := changes.Repetition.Value
		if err := validRepetition(&rule); err != nil {
			return err
		}
		changes.Repetition.Value = rule
	}
	return nil
}

func validateProjectInput(input *script.ProjectInput) error {
	name, err := requireName(input.Name)
	if err != nil {
		return err
	}
	input.Name = name
	input.FolderID = strings.TrimSpace(input.FolderID)
	if input.Status != "" && !input.Status.Valid() {
		return errs.Validation("status", fmt.Sprintf("unknown project status %q", input.Status))
	}
	return validReviewInterval(input.ReviewInterval)
}

func projectChangeFields(changes script.ProjectChanges) []string {
	var fields []string
	if changes.Name != nil {
		fields = append(fields, "name")
	}
	if changes.Note.Set {
		fields = append(fields, "note")
	}
	if changes.Status != "" {
		fields = append(fields, "status")
	}
	if changes.FolderID != nil {
		fields = append(fields, "folder_id")
	}
	if changes.Sequential != nil {
		fields = append(fields, "sequential")
	}
	if changes.Flagged != nil {
		fields = append(fields, "flagged")
	}
	if changes.DueDate.Set {
		fields = append(fields, "due_date")
	}
	if changes.DeferDate.Set {
		fields = append(fields, "defer_date")
	}
	if changes.ReviewInterval != nil {
		fields = append(fields, "review_interval")
	}
	if changes.MarkReviewed {
		fields = append(fields, "mark_reviewed")
	}
	return fields
}

func validateProjectChanges(changes *script.ProjectChanges) error {
	if len(projectChangeFields(*changes)) == 0 {
		return errs.Validation("", "no fields to update")
	}
	if changes.Name != nil {
		if _, err := requireName(*changes.Name); err != nil {
			return err
		}
	}
	if changes.Status != "" && !changes.Status.Valid() {
		return errs.Validation("status", fmt.Sprintf("unknown project status %q", changes.Status))
	}
	if changes.FolderID != nil {
		folderID := strings.TrimSpace(*changes.FolderID)
		changes.FolderID = &folderID
	}
	return validReviewInterval(changes.ReviewInterval)
}

func validateAnchor(id string, anchor *script.Anchor) error {
	anchor.BeforeTaskID = strings.TrimSpace(anchor.BeforeTaskID)
	anchor.AfterTaskID = strings.TrimSpace(anchor.AfterTaskID)
	anchor.Position = strings.ToLower(strings.TrimSpace(anchor.Position))

	targets := 0
	for _, set := range []bool{anchor.BeforeTaskID != "", anchor.AfterTaskID != "", anchor.Position != ""} {
		if set {
			targets++
		}
	}
	if targets != 1 {
		return errs.Validation("position", "exactly one of before_task_id, after_task_id or position is required")
	}
	if anchor.Position != "" && anchor.Position != "beginning" && anchor.Position != "end" {
		return errs.Validation("position", fmt.Sprintf("must be %q or %q", "beginning", "end"))
	}
	if anchor.BeforeTaskID == id || anchor.AfterTaskID == id {
		return errs.Validation("position", "a task cannot be positioned relative to itself")
	}
	return nil
}
