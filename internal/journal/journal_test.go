package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	journal, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })
	return journal
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	journal := openTestJournal(t)

	failures := []map[string]string{{"id": "bad-id", "code": "NOT_FOUND"}}
	entry, err := journal.Record(ctx, RecordArgs{
		CallID:       "call-1",
		Method:       "tasks.update_batch",
		TargetIDs:    []string{"id1", "id2", "bad-id"},
		UpdatedCount: 2,
		FailedCount:  1,
		Failures:     failures,
		Duration:     1500 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, "call-1", entry.CallID)
	assert.Equal(t, []string{"id1", "id2", "bad-id"}, entry.TargetIDs)
	assert.Equal(t, int64(1500), entry.DurationMillis)
	assert.JSONEq(t, `[{"id":"bad-id","code":"NOT_FOUND"}]`, string(entry.Failures))
	assert.Empty(t, entry.Error)

	_, err = journal.Record(ctx, RecordArgs{
		CallID: "call-2",
		Method: "tasks.create",
		Err:    errs.Validation("name", "is required"),
	})
	require.NoError(t, err)

	entries, err := journal.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "call-2", entries[0].CallID)
	assert.Equal(t, string(errs.CodeValidation), entries[0].ErrorCode)
	assert.Contains(t, entries[0].Error, "name")
	assert.Equal(t, []string{}, entries[0].TargetIDs)
	assert.Nil(t, entries[0].Failures)
	assert.Equal(t, "call-1", entries[1].CallID)
}

func TestRecentLimit(t *testing.T) {
	ctx := context.Background()
	journal := openTestJournal(t)
	for index := 0; index < 5; index++ {
		_, err := journal.Record(ctx, RecordArgs{CallID: fmt.Sprintf("call-%d", index), Method: "tasks.delete"})
		require.NoError(t, err)
	}

	entries, err := journal.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "call-4", entries[0].CallID)

	all, err := journal.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestRecordValidation(t *testing.T) {
	journal := openTestJournal(t)
	_, err := journal.Record(context.Background(), RecordArgs{Method: "tasks.create"})
	assert.Error(t, err)
	_, err = journal.Record(context.Background(), RecordArgs{CallID: "x"})
	assert.Error(t, err)
}

func TestDuplicateCallIDRejected(t *testing.T) {
	ctx := context.Background()
	journal := openTestJournal(t)
	_, err := journal.Record(ctx, RecordArgs{CallID: "same", Method: "tasks.create"})
	require.NoError(t, err)
	_, err = journal.Record(ctx, RecordArgs{CallID: "same", Method: "tasks.create"})
	assert.Error(t, err)
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	journal, err := Open(path)
	require.NoError(t, err)
	_, err = journal.Record(context.Background(), RecordArgs{CallID: "call-1", Method: "projects.create"})
	require.NoError(t, err)
	require.NoError(t, journal.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	entries, err := reopened.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	encoded, err := json.Marshal(entries[0])
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"method":"projects.create"`)
}

func TestSchemaDeclaresErrorCode(t *testing.T) {
	journal := openTestJournal(t)

	var schema string
	require.NoError(t, journal.database.QueryRowContext(context.Background(),
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'mutations'`).Scan(&schema))
	assert.Contains(t, schema, "error_code TEXT NULL")
}

func TestReopenKeepsErrorCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	for attempt := 0; attempt < 2; attempt++ {
		journal, err := Open(path)
		require.NoError(t, err)
		_, err = journal.Record(context.Background(), RecordArgs{
			CallID: fmt.Sprintf("call-%d", attempt),
			Method: "tasks.delete",
			Err:    errs.NotFound("task", "gone"),
		})
		require.NoError(t, err)
		require.NoError(t, journal.Close())
	}

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	entries, err := reopened.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, string(errs.CodeNotFound), entry.ErrorCode)
	}
}
