package omnifocus

import (
	"context"

	"go.uber.org/zap"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/batch"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/decode"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/filter"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/osascript"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/script"
)

// GetTasks runs a live read. A filter naming one task id fails with
// NotFoundError when OmniFocus has no such task.
func (c *Client) GetTasks(ctx context.Context, spec filter.Spec, opts CallOptions) ([]model.Task, error) {
	plan := filter.Compile(spec, c.now())
	class := osascript.ClassCollection
	if spec.TaskID() != "" {
		class = osascript.ClassItem
	}

	raw, err := c.run(ctx, "tasks.get", script.ReadTasks(c.app, plan.Scope, plan.Conditions), class, opts)
	if err != nil {
		return nil, err
	}
	tasks, err := decode.Tasks(raw)
	if err != nil {
		return nil, err
	}
	if spec.TaskID() != "" && len(tasks) == 0 {
		return nil, errs.NotFound("task", spec.TaskID())
	}
	c.logger.Debug("tasks read",
		zap.Int("decoded", len(tasks)),
		zap.Strings("residual", plan.Residual()),
	)
	return plan.Apply(tasks), nil
}

// CreateTask creates one task and returns its canonical record.
func (c *Client) CreateTask(ctx context.Context, input TaskInput, opts CallOptions) (model.Task, error) {
	if err := validateTaskInput(&input); err != nil {
		return model.Task{}, err
	}
	raw, err := c.mutate(ctx, "tasks.create", script.CreateTask(c.app, input), opts)
	if err != nil {
		return model.Task{}, err
	}
	return decode.Task(raw)
}

// UpdateTask applies changes to one task.
func (c *Client) UpdateTask(ctx context.Context, id string, changes TaskChanges, opts CallOptions) (decode.Update, error) {
	id, err := requireID("task_id", id)
	if err != nil {
		return decode.Update{}, err
	}
	if err := validateTaskChanges(&changes); err != nil {
		return decode.Update{}, err
	}
	if err := c.guard.Check(ctx); err != nil {
		return decode.Update{}, err
	}
	return c.updateTask(ctx, id, changes, opts)
}

func (c *Client) updateTask(ctx context.Context, id string, changes TaskChanges, opts CallOptions) (decode.Update, error) {
	raw, err := c.run(ctx, "tasks.update", script.UpdateTask(c.app, id, changes), osascript.ClassItem, opts)
	if err != nil {
		return decode.Update{}, asNotFound(err, "task", id)
	}
	return decode.Updated(raw)
}

// UpdateTasks applies the same changes to every id. Name and note are
// rejected before any item runs.
func (c *Client) UpdateTasks(ctx context.Context, ids []string, changes TaskChanges, opts CallOptions) (batch.Result, error) {
	ids, err := batch.Normalize(ids)
	if err != nil {
		return batch.Result{}, err
	}
	if err := batch.RejectFields(taskChangeFields(changes)...); err != nil {
		return batch.Result{}, err
	}
	if err := validateTaskChanges(&changes); err != nil {
		return batch.Result{}, err
	}
	return c.runBatch(ctx, "tasks.update_batch", ids, func(ctx context.Context, id string) error {
		_, err := c.updateTask(ctx, id, changes, opts)
		return err
	})
}

// DeleteTasks deletes every id, continuing past failures.
func (c *Client) DeleteTasks(ctx context.Context, ids []string, opts CallOptions) (batch.Result, error) {
	ids, err := batch.Normalize(ids)
	if err != nil {
		return batch.Result{}, err
	}
	return c.runBatch(ctx, "tasks.delete", ids, func(ctx context.Context, id string) error {
		raw, err := c.run(ctx, "tasks.delete", script.DeleteTask(c.app, id), osascript.ClassItem, opts)
		if err != nil {
			return asNotFound(err, "task", id)
		}
		_, err = decode.Acknowledged(raw)
		return err
	})
}

// ReorderTask moves a task before or after a sibling, or to the beginning
// or end of its container.
func (c *Client) ReorderTask(ctx context.Context, id string, anchor Anchor, opts CallOptions) (decode.Ack, error) {
	id, err := requireID("task_id", id)
	if err != nil {
		return decode.Ack{}, err
	}
	if err := validateAnchor(id, &anchor); err != nil {
		return decode.Ack{}, err
	}
	raw, err := c.mutate(ctx, "tasks.reorder", script.ReorderTask(c.app, id, anchor), opts)
	if err != nil {
		return decode.Ack{}, asNotFound(err, "task", id)
	}
	return decode.Acknowledged(raw)
}
