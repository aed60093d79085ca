package omnifocus

import (
	"context"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/batch"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/decode"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/filter"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/osascript"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/script"
)

func (c *Client) GetProjects(ctx context.Context, spec filter.ProjectSpec, opts CallOptions) ([]model.Project, error) {
	plan := filter.CompileProjects(spec, c.now())
	class := osascript.ClassCollection
	if spec.ProjectID() != "" {
		class = osascript.ClassItem
	}

	raw, err := c.run(ctx, "projects.get", script.ReadProjects(c.app, plan.Scope, plan.Conditions), class, opts)
	if err != nil {
		return nil, err
	}
	projects, err := decode.Projects(raw)
	if err != nil {
		return nil, err
	}
	if spec.ProjectID() != "" && len(projects) == 0 {
		return nil, errs.NotFound("project", spec.ProjectID())
	}
	return plan.Apply(projects), nil
}

func (c *Client) CreateProject(ctx context.Context, input ProjectInput, opts CallOptions) (model.Project, error) {
	if err := validateProjectInput(&input); err != nil {
		return model.Project{}, err
	}
	raw, err := c.mutate(ctx, "projects.create", script.CreateProject(c.app, input), opts)
	if err != nil {
		return model.Project{}, err
	}
	return decode.Project(raw)
}

// UpdateProject applies changes to one project. MarkReviewed never moves
// the last review date backwards.
func (c *Client) UpdateProject(ctx context.Context, id string, changes ProjectChanges, opts CallOptions) (decode.Update, error) {
	id, err := requireID("project_id", id)
	if err != nil {
		return decode.Update{}, err
	}
	if err := validateProjectChanges(&changes); err != nil {
		return decode.Update{}, err
	}
	if err := c.guard.Check(ctx); err != nil {
		return decode.Update{}, err
	}
	return c.updateProject(ctx, id, changes, opts)
}

func (c *Client) updateProject(ctx context.Context, id string, changes ProjectChanges, opts CallOptions) (decode.Update, error) {
	raw, err := c.run(ctx, "projects.update", script.UpdateProject(c.app, id, changes), osascript.ClassItem, opts)
	if err != nil {
		return decode.Update{}, asNotFound(err, "project", id)
	}
	return decode.Updated(raw)
}

func (c *Client) UpdateProjects(ctx context.Context, ids []string, changes ProjectChanges, opts CallOptions) (batch.Result, error) {
	ids, err := batch.Normalize(ids)
	if err != nil {
		return batch.Result{}, err
	}
	if err := batch.RejectFields(projectChangeFields(changes)...); err != nil {
		return batch.Result{}, err
	}
	if err := validateProjectChanges(&changes); err != nil {
		return batch.Result{}, err
	}
	return c.runBatch(ctx, "projects.update_batch", ids, func(ctx context.Context, id string) error {
		_, err := c.updateProject(ctx, id, changes, opts)
		return err
	})
}

// DeleteProjects deletes every id together with the projects' tasks.
func (c *Client) DeleteProjects(ctx context.Context, ids []string, opts CallOptions) (batch.Result, error) {
	ids, err := batch.Normalize(ids)
	if err != nil {
		return batch.Result{}, err
	}
	return c.runBatch(ctx, "projects.delete", ids, func(ctx context.Context, id string) error {
		raw, err := c.run(ctx, "projects.delete", script.DeleteProject(c.app, id), osascript.ClassItem, opts)
		if err != nil {
			return asNotFound(err, "project", id)
		}
		_, err = decode.Acknowledged(raw)
		return err
	})
}
