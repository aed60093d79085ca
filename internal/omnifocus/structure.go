package omnifocus

import (
	"context"
	"strings"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/decode"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/model"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/osascript"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/safety"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/script"
)

func (c *Client) GetFolders(ctx context.Context, opts CallOptions) ([]model.Folder, error) {
	raw, err := c.run(ctx, "folders.list", script.ReadFolders(c.app), osascript.ClassCollection, opts)
	if err != nil {
		return nil, err
	}
	return decode.Folders(raw)
}

func (c *Client) GetTags(ctx context.Context, opts CallOptions) ([]model.Tag, error) {
	raw, err := c.run(ctx, "tags.list", script.ReadTags(c.app), osascript.ClassCollection, opts)
	if err != nil {
		return nil, err
	}
	return decode.Tags(raw)
}

// CreateFolder creates a folder at the top level, or inside parentID when
// it is set.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string, opts CallOptions) (model.Folder, error) {
	name, err := requireName(name)
	if err != nil {
		return model.Folder{}, err
	}
	parentID = strings.TrimSpace(parentID)
	raw, err := c.mutate(ctx, "folders.create", script.CreateFolder(c.app, name, parentID), opts)
	if err != nil {
		return model.Folder{}, asNotFound(err, "folder", parentID)
	}
	return decode.Folder(raw)
}

func (c *Client) CreateTag(ctx context.Context, name, parentID string, opts CallOptions) (model.Tag, error) {
	name, err := requireName(name)
	if err != nil {
		return model.Tag{}, err
	}
	parentID = strings.TrimSpace(parentID)
	raw, err := c.mutate(ctx, "tags.create", script.CreateTag(c.app, name, parentID), opts)
	if err != nil {
		return model.Tag{}, asNotFound(err, "tag", parentID)
	}
	return decode.Tag(raw)
}

// DatabaseInfo describes the live database and the client's safety mode.
type DatabaseInfo struct {
	Name       string      `json:"name"`
	App        string      `json:"app"`
	SafetyMode safety.Mode `json:"safety_mode"`
}

// DatabaseInfo runs the read-only database name probe.
func (c *Client) DatabaseInfo(ctx context.Context, opts CallOptions) (DatabaseInfo, error) {
	raw, err := c.run(ctx, "system.database", script.DatabaseName(c.app), osascript.ClassItem, opts)
	if err != nil {
		return DatabaseInfo{}, err
	}
	name, err := decode.DatabaseName(raw)
	if err != nil {
		return DatabaseInfo{}, err
	}
	return DatabaseInfo{Name: name, App: c.app, SafetyMode: c.guard.Mode()}, nil
}
