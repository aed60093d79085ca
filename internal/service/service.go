// Package service is the method-dispatch boundary between the MCP
// transport and the OmniFocus client.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/batch"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/journal"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/omnifocus"
)

type Service struct {
	client  *omnifocus.Client
	journal *journal.Journal
	logger  *zap.Logger
	newID   func() string
}

// NewService wires client and an optional journal. A nil journal disables
// mutation recording.
func NewService(client *omnifocus.Client, mutations *journal.Journal, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:  client,
		journal: mutations,
		logger:  logger.Named("service"),
		newID:   func() string { return uuid.New().String() },
	}
}

func (service *Service) Close() error {
	if service.journal == nil {
		return nil
	}
	return service.journal.Close()
}

func (service *Service) Handle(ctx context.Context, method string, rawParams json.RawMessage) (any, error) {
	switch method {
	case "tasks.get":
		var input tasksGetInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		opts, err := input.options()
		if err != nil {
			return nil, err
		}
		spec, err := input.spec()
		if err != nil {
			return nil, err
		}
		tasks, err := service.client.GetTasks(ctx, spec, opts)
		if err != nil {
			return nil, err
		}
		return map[string]any{"tasks": tasks, "count": len(tasks)}, nil
	case "tasks.create":
		var input taskCreateInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		return service.mutation(ctx, method, nil, input.timeoutInput, func(opts omnifocus.CallOptions) (any, error) {
			task, err := service.client.CreateTask(ctx, input.task(), opts)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": task.ID, "task": task}, nil
		})
	case "tasks.update":
		var input taskUpdateInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		return service.mutation(ctx, method, []string{input.TaskID}, input.timeoutInput, func(opts omnifocus.CallOptions) (any, error) {
			return service.client.UpdateTask(ctx, input.TaskID, input.changes(), opts)
		})
	case "tasks.update_batch":
		var input taskBatchUpdateInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		return service.mutation(ctx, method, input.TaskIDs, input.timeoutInput, func(opts omnifocus.CallOptions) (any, error) {
			return service.client.UpdateTasks(ctx, input.TaskIDs, input.changes(), opts)
		})
	case "tasks.delete":
		var input taskDeleteInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		return service.mutation(ctx, method, input.TaskIDs, input.timeoutInput, func(opts omnifocus.CallOptions) (any, error) {
			return service.client.DeleteTasks(ctx, input.TaskIDs, opts)
		})
	case "tasks.reorder":
		var input taskReorderInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		return service.mutation(ctx, method, []string{input.TaskID}, input.timeoutInput, func(opts omnifocus.CallOptions) (any, error) {
			return service.client.ReorderTask(ctx, input.TaskID, omnifocus.Anchor{
				BeforeTaskID: input.BeforeTaskID,
				AfterTaskID:  input.AfterTaskID,
				Position:     input.Position,
			}, opts)
		})
	case "projects.get":
		var input projectsGetInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		opts, err := input.options()
		if err != nil {
			return nil, err
		}
		spec, err := input.spec()
		if err != nil {
			return nil, err
		}
		projects, err := service.client.GetProjects(ctx, spec, opts)
		if err != nil {
			return nil, err
		}
		return map[string]any{"projects": projects, "count": len(projects)}, nil
	case "projects.create":
		var input projectCreateInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		return service.mutation(ctx, method, nil, input.timeoutInput, func(opts omnifocus.CallOptions) (any, error) {
			project, err := service.client.CreateProject(ctx, input.project(), opts)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": project.ID, "project": project}, nil
		})
	case "projects.update":
		var input projectUpdateInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		return service.mutation(ctx, method, []string{input.ProjectID}, input.timeoutInput, func(opts omnifocus.CallOptions) (any, error) {
			return service.client.UpdateProject(ctx, input.ProjectID, input.changes(), opts)
		})
	case "projects.update_batch":
		var input projectBatchUpdateInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		return service.mutation(ctx, method, input.ProjectIDs, input.timeoutInput, func(opts omnifocus.CallOptions) (any, error) {
			return service.client.UpdateProjects(ctx, input.ProjectIDs, input.changes(), opts)
		})
	case "projects.delete":
		var input projectDeleteInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		return service.mutation(ctx, method, input.ProjectIDs, input.timeoutInput, func(opts omnifocus.CallOptions) (any, error) {
			return service.client.DeleteProjects(ctx, input.ProjectIDs, opts)
		})
	case "folders.list":
		var input timeoutInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		opts, err := input.options()
		if err != nil {
			return nil, err
		}
		folders, err := service.client.GetFolders(ctx, opts)
		if err != nil {
			return nil, err
		}
		return map[string]any{"folders": folders, "count": len(folders)}, nil
	case "folders.create":
		var input containerCreateInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		return service.mutation(ctx, method, nil, input.timeoutInput, func(opts omnifocus.CallOptions) (any, error) {
			folder, err := service.client.CreateFolder(ctx, input.Name, input.ParentID, opts)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": folder.ID, "folder": folder}, nil
		})
	case "tags.list":
		var input timeoutInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		opts, err := input.options()
		if err != nil {
			return nil, err
		}
		tags, err := service.client.GetTags(ctx, opts)
		if err != nil {
			return nil, err
		}
		return map[string]any{"tags": tags, "count": len(tags)}, nil
	case "tags.create":
		var input containerCreateInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		return service.mutation(ctx, method, nil, input.timeoutInput, func(opts omnifocus.CallOptions) (any, error) {
			tag, err := service.client.CreateTag(ctx, input.Name, input.ParentID, opts)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": tag.ID, "tag": tag}, nil
		})
	case "system.database":
		var input timeoutInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		opts, err := input.options()
		if err != nil {
			return nil, err
		}
		info, err := service.client.DatabaseInfo(ctx, opts)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"database":        info,
			"journal_enabled": service.journal != nil,
		}, nil
	case "journal.recent":
		var input journalRecentInput
		if err := decodeParams(rawParams, &input); err != nil {
			return nil, err
		}
		if service.journal == nil {
			return map[string]any{"enabled": false, "entries": []journal.Entry{}}, nil
		}
		entries, err := service.journal.Recent(ctx, input.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"enabled": true, "entries": entries}, nil
	default:
		return nil, fmt.Errorf("unsupported method: %s", method)
	}
}

// mutation runs one mutating call and journals its outcome. Journal
// failures are logged and never fail the call.
func (service *Service) mutation(ctx context.Context, method string, ids []string, timeout timeoutInput, call func(omnifocus.CallOptions) (any, error)) (any, error) {
	opts, err := timeout.options()
	if err != nil {
		return nil, err
	}

	callID := service.newID()
	started := time.Now()
	result, err := call(opts)
	elapsed := time.Since(started)

	fields := []zap.Field{
		zap.String("call_id", callID),
		zap.String("method", method),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		service.logger.Warn("mutation failed", append(fields, zap.Error(err))...)
	} else {
		service.logger.Info("mutation finished", fields...)
	}

	if service.journal == nil {
		return result, err
	}
	args := journal.RecordArgs{
		CallID:    callID,
		Method:    method,
		TargetIDs: ids,
		Err:       err,
		Duration:  elapsed,
	}
	switch outcome := result.(type) {
	case batch.Result:
		args.UpdatedCount = outcome.UpdatedCount
		args.FailedCount = outcome.FailedCount
		if len(outcome.Failures) > 0 {
			args.Failures = outcome.Failures
		}
	case nil:
	default:
		if err == nil {
			args.UpdatedCount = 1
		}
	}
	if created, ok := result.(map[string]any); ok {
		if id, ok := created["id"].(string); ok && id != "" {
			args.TargetIDs = []string{id}
		}
	}
	if _, journalErr := service.journal.Record(ctx, args); journalErr != nil {
		service.logger.Warn("journal write failed", zap.String("call_id", callID), zap.Error(journalErr))
	}
	return result, err
}
