package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spdrive/spdrive/internal/graph"
)

// ErrFolderNotEmpty is returned by DeleteFolder when the target still has
// children. The service would happily delete the whole subtree; the guard
// is deliberately client-side.
var ErrFolderNotEmpty = errors.New("library: folder is not empty")

// Folder is the caller-facing view of a folder item.
type Folder struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	WebURL     string `json:"webUrl,omitempty"`
	ChildCount int    `json:"childCount"`
	Created    string `json:"createdDateTime,omitempty"`
	Modified   string `json:"lastModifiedDateTime,omitempty"`
}

// createFolderRequest is the POST body for folder creation.
// conflictBehavior "fail" surfaces name collisions as 409.
type createFolderRequest struct {
	Name             string   `json:"name"`
	Folder           struct{} `json:"folder"`
	ConflictBehavior string   `json:"@microsoft.graph.conflictBehavior"` //nolint:tagliatelle // Graph API annotation key
}

// ListFolders returns the folders directly inside parentPath.
func (l *Library) ListFolders(ctx context.Context, parentPath string) ([]Folder, error) {
	items, err := l.listChildren(ctx, parentPath, "folder ne null", folderSelectFields)
	if err != nil {
		return nil, err
	}

	folders := make([]Folder, 0, len(items))
	for i := range items {
		folders = append(folders, folderFrom(&items[i]))
	}

	l.logger.Info("listed folders",
		slog.String("path", parentPath),
		slog.Int("count", len(folders)),
	)

	return folders, nil
}

// CreateFolder creates a folder under parentPath. A name collision fails
// with graph.ErrConflict.
func (l *Library) CreateFolder(ctx context.Context, parentPath, name string) (*Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("library: folder name is required")
	}

	basePath, err := l.sites.BasePath(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := l.client.Request(ctx, graph.Request{
		Endpoint: basePath + graph.ResolvePath(parentPath) + "/children",
		Method:   http.MethodPost,
		Body: createFolderRequest{
			Name:             name,
			ConflictBehavior: "fail",
		},
	})
	if err != nil {
		return nil, err
	}

	var item graph.Item
	if err := payload.Decode(&item); err != nil {
		return nil, err
	}

	folder := folderFrom(&item)

	l.logger.Info("created folder",
		slog.String("parent", parentPath),
		slog.String("name", name),
	)

	return &folder, nil
}

// DeleteFolder removes an empty folder. It first lists one child: the
// service does not reject non-empty deletes, so the emptiness check is the
// only thing standing between a typo and a deleted subtree.
func (l *Library) DeleteFolder(ctx context.Context, folderPath string) error {
	if folderPath == "" {
		return fmt.Errorf("library: folder path is required")
	}

	basePath, err := l.sites.BasePath(ctx)
	if err != nil {
		return err
	}

	payload, err := l.client.Request(ctx, graph.Request{
		Endpoint: basePath + graph.ResolvePath(folderPath) + "/children",
		Query:    map[string]string{"$top": "1"},
	})
	if err != nil {
		return err
	}

	var page graph.ListPage
	if err := payload.Decode(&page); err != nil {
		return err
	}

	if len(page.Value) > 0 {
		return fmt.Errorf("deleting %q: %w", folderPath, ErrFolderNotEmpty)
	}

	_, err = l.client.Request(ctx, graph.Request{
		Endpoint: basePath + graph.ResolvePath(folderPath),
		Method:   http.MethodDelete,
	})
	if err != nil {
		return err
	}

	l.logger.Info("deleted folder", slog.String("path", folderPath))

	return nil
}

// FolderTree materializes the folder hierarchy under parentPath, at most
// maxDepth levels deep.
func (l *Library) FolderTree(ctx context.Context, parentPath string, maxDepth int) ([]graph.FolderNode, error) {
	return l.tree.BuildTree(ctx, parentPath, maxDepth)
}

// folderFrom maps a drive item to the caller-facing Folder.
func folderFrom(item *graph.Item) Folder {
	return Folder{
		ID:         item.ID,
		Name:       item.Name,
		WebURL:     item.WebURL,
		ChildCount: item.ChildCount(),
		Created:    item.CreatedDateTime,
		Modified:   item.LastModifiedDateTime,
	}
}
