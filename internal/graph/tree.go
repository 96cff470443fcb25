package graph

import (
	"context"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/spdrive/spdrive/internal/config"
)

// HardMaxTreeDepth is the ceiling on traversal depth regardless of caller
// or configuration input.
const HardMaxTreeDepth = 15

// defaultTreeDepth is used when the caller does not specify a depth.
const defaultTreeDepth = 3

// TreeState says why a node's expansion stopped.
type TreeState string

const (
	// TreeExpanded means Children holds the node's subfolders (possibly none).
	TreeExpanded TreeState = "expanded"
	// TreeTruncated means the depth limit was reached; Children is nil.
	TreeTruncated TreeState = "truncated"
	// TreeFailed means expanding this subtree failed; Children is empty.
	TreeFailed TreeState = "failed"
)

// FolderNode is one folder in a materialized tree. Path is the full
// logical path from the traversal root.
type FolderNode struct {
	Name       string       `json:"name"`
	Path       string       `json:"path"`
	ChildCount int          `json:"childCount"`
	State      TreeState    `json:"state"`
	Children   []FolderNode `json:"children"`
}

// Traverser materializes a folder hierarchy by recursive listing. Sibling
// subtrees at each level expand concurrently with a bounded fan-out; a
// failure inside one subtree degrades that branch and never aborts its
// siblings.
type Traverser struct {
	client   *Client
	sites    *SiteResolver
	logger   *slog.Logger
	perLevel int
	fanout   int
	maxDepth int
}

// NewTraverser creates a Traverser honoring the configured limits, with
// the hard depth ceiling applied on top.
func NewTraverser(client *Client, sites *SiteResolver, limits config.LimitsConfig, logger *slog.Logger) *Traverser {
	if logger == nil {
		logger = slog.Default()
	}

	maxDepth := limits.MaxTreeDepth
	if maxDepth < 1 || maxDepth > HardMaxTreeDepth {
		maxDepth = HardMaxTreeDepth
	}

	return &Traverser{
		client:   client,
		sites:    sites,
		logger:   logger,
		perLevel: limits.MaxFoldersPerLevel,
		fanout:   limits.TreeFanout,
		maxDepth: maxDepth,
	}
}

// BuildTree expands rootPath into a tree at most maxDepth levels deep.
// A maxDepth below 1 selects the default; all values are clamped to the
// ceiling. The very first listing's failure propagates to the caller;
// failures below the first level degrade their own branch only.
func (t *Traverser) BuildTree(ctx context.Context, rootPath string, maxDepth int) ([]FolderNode, error) {
	if maxDepth < 1 {
		maxDepth = defaultTreeDepth
	}

	if maxDepth > t.maxDepth {
		maxDepth = t.maxDepth
	}

	basePath, err := t.sites.BasePath(ctx)
	if err != nil {
		return nil, err
	}

	return t.expandLevel(ctx, basePath, rootPath, 1, maxDepth)
}

// expandLevel lists the immediate subfolders of folderPath (all returned
// nodes sit at the given depth) and expands them concurrently.
func (t *Traverser) expandLevel(ctx context.Context, basePath, folderPath string, depth, maxDepth int) ([]FolderNode, error) {
	items, err := t.listFolders(ctx, basePath, folderPath)
	if err != nil {
		return nil, err
	}

	nodes := make([]FolderNode, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.fanout)

	for i, item := range items {
		i := i
		childPath := item.Name
		if folderPath != "" {
			childPath = folderPath + "/" + item.Name
		}

		nodes[i] = FolderNode{
			Name:       item.Name,
			Path:       childPath,
			ChildCount: item.ChildCount(),
		}

		if depth+1 > maxDepth {
			nodes[i].State = TreeTruncated

			continue
		}

		g.Go(func() error {
			children, expandErr := t.expandLevel(gctx, basePath, childPath, depth+1, maxDepth)
			if expandErr != nil {
				// Degrade this branch only; siblings keep expanding.
				t.logger.Warn("subtree expansion failed",
					slog.String("path", childPath),
					slog.Int("depth", depth+1),
					slog.String("error", expandErr.Error()),
				)

				nodes[i].State = TreeFailed
				nodes[i].Children = []FolderNode{}

				return nil
			}

			nodes[i].State = TreeExpanded
			nodes[i].Children = children

			return nil
		})
	}

	// Goroutines never return errors; Wait is a bounded join.
	_ = g.Wait() //nolint:errcheck

	return nodes, nil
}

// listFolders fetches one page of immediate child folders, server-side
// filtered to folders and capped at the per-level limit.
func (t *Traverser) listFolders(ctx context.Context, basePath, folderPath string) ([]Item, error) {
	payload, err := t.client.Request(ctx, Request{
		Endpoint: basePath + ResolvePath(folderPath) + "/children",
		Query: map[string]string{
			"$filter": "folder ne null",
			"$select": "id,name,folder",
			"$top":    strconv.Itoa(t.perLevel),
		},
	})
	if err != nil {
		return nil, err
	}

	var page ListPage
	if err := payload.Decode(&page); err != nil {
		return nil, err
	}

	return page.Value, nil
}
