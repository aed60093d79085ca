package decode

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
)

func ptr[T any](value T) *T {
	return &value
}

func local(year int, month time.Month, day, hour, minute, second int) time.Time {
	return time.Date(year, month, day, hour, minute, second, 0, time.Local)
}

func TestEmptyOutputIsEmptyCollection(t *testing.T) {
	for _, raw := range []string{"", "\n", "  \n\t"} {
		tasks, err := Tasks(raw)
		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	}
}

func TestMalformedOutputIsDecodeError(t *testing.T) {
	raw := "execution error: " + strings.Repeat("garbage ", 200)
	_, err := Tasks(raw)
	require.Error(t, err)
	assert.Equal(t, errs.CodeDecode, errs.CodeOf(err))

	decodeErr, ok := err.(*errs.DecodeError)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(decodeErr.Raw, "execution error: garbage"))
	assert.Less(t, len(decodeErr.Raw), len(raw))
}

func TestTaskDecodesSentinelsAndDates(t *testing.T) {
	raw := `[{"id":"t1","name":"Café","note":null,"completed":false,"dropped":false,"flagged":true,
		"due_date":"2025-01-15T09:00:00","defer_date":"missing value","completion_date":"2025-01-10T08:00:00",
		"creation_date":"date \"Wednesday, January 1, 2025 at 9:00:00 AM\"","modification_date":null,
		"estimated_minutes":null,"tags":["home","errands"],"project_id":"p1","project_name":"Chores",
		"parent_task_id":"p1","in_inbox":false,"repetition_rule":null,"has_children":false}]`

	tasks, err := Tasks(raw)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	expected := model.Task{
		ID:           "t1",
		Name:         "Cafe\u0301",
		Status:       model.TaskActive,
		Flagged:      true,
		DueDate:      ptr(local(2025, time.January, 15, 9, 0, 0)),
		CreationDate: ptr(local(2025, time.January, 1, 9, 0, 0)),
		Tags:         []string{"home", "errands"},
		ProjectID:    ptr("p1"),
		ProjectName:  ptr("Chores"),
	}
	if diff := cmp.Diff(expected, tasks[0]); diff != "" {
		t.Fatalf("task mismatch (-want +got):\n%s", diff)
	}
}

func TestTaskPlacement(t *testing.T) {
	testCases := []struct {
		name        string
		raw         string
		wantProject *string
		wantParent  *string
		wantInInbox bool
	}{
		{
			name:        "inbox",
			raw:         `{"id":"t","name":"x","project_id":null,"parent_task_id":null,"in_inbox":true}`,
			wantInInbox: true,
		},
		{
			name:        "project top level",
			raw:         `{"id":"t","name":"x","project_id":"p1","parent_task_id":"p1"}`,
			wantProject: ptr("p1"),
		},
		{
			name:       "subtask in project",
			raw:        `{"id":"t","name":"x","project_id":"p1","parent_task_id":"t0"}`,
			wantParent: ptr("t0"),
		},
		{
			name:       "subtask in inbox",
			raw:        `{"id":"t","name":"x","project_id":null,"parent_task_id":"t0","in_inbox":true}`,
			wantParent: ptr("t0"),
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			task, err := Task(testCase.raw)
			require.NoError(t, err)
			assert.Equal(t, testCase.wantProject, task.ProjectID)
			assert.Equal(t, testCase.wantParent, task.ParentTaskID)
			assert.Equal(t, testCase.wantInInbox, task.InInbox)
		})
	}
}

func TestEmptyStringSurvives(t *testing.T) {
	task, err := Task(`{"id":"t","name":"","note":""}`)
	require.NoError(t, err)
	require.NotNil(t, task.Note)
	assert.Equal(t, "", *task.Note)
	assert.Equal(t, "", task.Name)
}

func TestTextIsKeptVerbatim(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		wantName string
		wantNote *string
	}{
		{
			name:     "sentinel text",
			raw:      `{"id":"t","name":"missing value","note":"missing value"}`,
			wantName: "missing value",
			wantNote: ptr("missing value"),
		},
		{
			name:     "null note",
			raw:      `{"id":"t","name":"x","note":null}`,
			wantName: "x",
		},
		{
			name:     "decomposed accent",
			raw:      "{\"id\":\"t\",\"name\":\"Cafe\u0301\",\"note\":\"e\u0301\"}",
			wantName: "Cafe\u0301",
			wantNote: ptr("e\u0301"),
		},
		{
			name:     "escaped controls",
			raw:      `{"id":"t","name":"a\u000bb","note":"\u0000\u001f"}`,
			wantName: "a\vb",
			wantNote: ptr("\x00\x1f"),
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			task, err := Task(testCase.raw)
			require.NoError(t, err)
			assert.Equal(t, testCase.wantName, task.Name)
			assert.Equal(t, testCase.wantNote, task.Note)
		})
	}
}

func TestRawControlCharactersDoNotSinkCollection(t *testing.T) {
	raw := "[{\"id\":\"t1\",\"name\":\"first\",\"note\":\"tab\vstop\ffeed\"},\n{\"id\":\"t2\",\"name\":\"second\",\"note\":null}]"

	tasks, err := Tasks(raw)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.NotNil(t, tasks[0].Note)
	assert.Equal(t, "tab\vstop\ffeed", *tasks[0].Note)
	assert.Equal(t, "second", tasks[1].Name)
	assert.Nil(t, tasks[1].Note)
}

func TestScalarsAcceptNativeSentinel(t *testing.T) {
	for _, absent := range []string{`null`, `"missing value"`} {
		task, err := Task(`{"id":"t","name":"x","due_date":` + absent + `,"estimated_minutes":` + absent + `}`)
		require.NoError(t, err, absent)
		assert.Nil(t, task.DueDate, absent)
		assert.Nil(t, task.EstimatedMinutes, absent)
	}
}

func TestCompletedTaskKeepsCompletionDate(t *testing.T) {
	task, err := Task(`{"id":"t","name":"x","completed":true,"completion_date":"2025-02-01T10:00:00",
		"estimated_minutes":30,"repetition_rule":{"recurrence":"FREQ=DAILY","method":"due after completion"}}`)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, task.Status)
	require.NotNil(t, task.CompletionDate)
	assert.Equal(t, local(2025, time.February, 1, 10, 0, 0), *task.CompletionDate)
	require.NotNil(t, task.EstimatedMinutes)
	assert.Equal(t, 30, *task.EstimatedMinutes)
	assert.Equal(t, &model.RepetitionRule{Recurrence: "FREQ=DAILY", Method: model.RepeatDueAfterCompletion}, task.RepetitionRule)
}

func TestProjectDecode(t *testing.T) {
	raw := `{"id":"p1","name":"Home","note":"","status":"on hold status","folder_id":"f1","folder_path":"Personal > Home",
		"sequential":true,"flagged":false,"due_date":"missing value","review_interval":{"steps":2,"unit":"week"},
		"last_review_date":"2025-01-01T00:00:00","next_review_date":"2025-01-15T00:00:00",
		"task_count":5,"remaining_count":3,"available_count":1,"completed_count":2}`

	project, err := Project(raw)
	require.NoError(t, err)

	expected := model.Project{
		ID:             "p1",
		Name:           "Home",
		Note:           ptr(""),
		Status:         model.ProjectOnHold,
		FolderID:       ptr("f1"),
		FolderPath:     ptr("Personal > Home"),
		Sequential:     true,
		ReviewInterval: &model.ReviewInterval{Steps: 2, Unit: "week"},
		LastReviewDate: ptr(local(2025, time.January, 1, 0, 0, 0)),
		NextReviewDate: ptr(local(2025, time.January, 15, 0, 0, 0)),
		TaskCount:      5,
		RemainingCount: 3,
		AvailableCount: 1,
		CompletedCount: 2,
	}
	if diff := cmp.Diff(expected, project); diff != "" {
		t.Fatalf("project mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectStatusNormalization(t *testing.T) {
	testCases := map[string]model.ProjectStatus{
		"active status":  model.ProjectActive,
		"on hold status": model.ProjectOnHold,
		"done status":    model.ProjectDone,
		"dropped status": model.ProjectDropped,
		"completed":      model.ProjectDone,
	}
	for raw, expected := range testCases {
		assert.Equal(t, expected, projectStatus(raw), raw)
	}
}

func TestErrorEnvelopes(t *testing.T) {
	_, err := Updated(`{"error":"not_found","kind":"task","id":"bad-id"}`)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, "task not found: bad-id", err.Error())

	_, err = Tasks(`{"error":"not_found","kind":"project","id":"p9"}`)
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))

	_, err = Task(`{"error":"repetition_unavailable"}`)
	assert.Equal(t, errs.CodeValidation, errs.CodeOf(err))
}

func TestRecordNamedErrorIsNotAnEnvelope(t *testing.T) {
	task, err := Task(`{"id":"t","name":"error","note":"\"error\""}`)
	require.NoError(t, err)
	assert.Equal(t, "error", task.Name)
}

func TestUpdatedAndAcknowledged(t *testing.T) {
	update, err := Updated(`{"id":"t1","updated_fields":["flagged"]}` + "\n")
	require.NoError(t, err)
	assert.Equal(t, Update{ID: "t1", UpdatedFields: []string{"flagged"}}, update)

	_, err = Updated(`{"updated_fields":[]}`)
	assert.Equal(t, errs.CodeDecode, errs.CodeOf(err))

	ack, err := Acknowledged(`{"deleted":true,"id":"t1"}`)
	require.NoError(t, err)
	assert.True(t, ack.Deleted)
}

func TestParseDate(t *testing.T) {
	expected := local(2025, time.January, 15, 9, 0, 0)
	testCases := []struct {
		name  string
		input string
	}{
		{name: "iso local", input: "2025-01-15T09:00:00"},
		{name: "native echo", input: `date "Wednesday, January 15, 2025 at 9:00:00 AM"`},
		{name: "native without wrapper", input: "Wednesday, January 15, 2025 at 9:00:00 AM"},
		{name: "narrow no-break space", input: "Wednesday, January 15, 2025 at 9:00:00\u202fAM"},
		{name: "rfc3339", input: expected.Format(time.RFC3339)},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			parsed, err := ParseDate(testCase.input)
			require.NoError(t, err)
			assert.True(t, expected.Equal(parsed), "got %s", parsed)
		})
	}

	_, err := ParseDate("someday")
	assert.Error(t, err)
}

func TestDatabaseName(t *testing.T) {
	name, err := DatabaseName("OmniFocus-Test\n")
	require.NoError(t, err)
	assert.Equal(t, "OmniFocus-Test", name)

	_, err = DatabaseName("\n")
	assert.Error(t, err)
}
