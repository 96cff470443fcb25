// Package library implements the document and folder operations of a
// SharePoint document library on top of the graph client: listing,
// reading, uploading, deleting, metadata access, and tree enumeration.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spdrive/spdrive/internal/config"
	"github.com/spdrive/spdrive/internal/graph"
)

// Graph API $select field sets.
const (
	documentSelectFields = "id,name,size,createdDateTime,lastModifiedDateTime,webUrl,file,folder,parentReference"
	documentDetailFields = "id,name,size,createdDateTime,lastModifiedDateTime,webUrl,file,folder,parentReference," +
		"@microsoft.graph.downloadUrl"
	folderSelectFields = "id,name,folder,webUrl,parentReference,createdDateTime,lastModifiedDateTime"
)

// Library exposes typed operations over one document library.
type Library struct {
	client *graph.Client
	sites  *graph.SiteResolver
	tree   *graph.Traverser
	limits config.LimitsConfig
	logger *slog.Logger
}

// New assembles a Library over the given client and resolver.
func New(client *graph.Client, sites *graph.SiteResolver, limits config.LimitsConfig, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}

	return &Library{
		client: client,
		sites:  sites,
		tree:   graph.NewTraverser(client, sites, limits, logger),
		limits: limits,
		logger: logger,
	}
}

// listChildren paginates through the children of a folder with the given
// OData filter, following @odata.nextLink until the overall result cap.
func (l *Library) listChildren(ctx context.Context, folderPath, filter, selectFields string) ([]graph.Item, error) {
	basePath, err := l.sites.BasePath(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := basePath + graph.ResolvePath(folderPath) + "/children"
	query := map[string]string{
		"$filter": filter,
		"$select": selectFields,
		"$top":    strconv.Itoa(l.limits.PageSize),
	}

	var items []graph.Item

	for endpoint != "" && len(items) < l.limits.MaxResults {
		payload, err := l.client.Request(ctx, graph.Request{Endpoint: endpoint, Query: query})
		if err != nil {
			return nil, err
		}

		var page graph.ListPage
		if err := payload.Decode(&page); err != nil {
			return nil, err
		}

		items = append(items, page.Value...)

		// nextLink already carries the full query string.
		endpoint = page.NextLink
		query = nil
	}

	if len(items) > l.limits.MaxResults {
		items = items[:l.limits.MaxResults]
	}

	return items, nil
}

// getItem fetches a single item addressed by folder path and file name.
func (l *Library) getItem(ctx context.Context, folderPath, fileName string, query map[string]string) (*graph.Item, error) {
	if fileName == "" {
		return nil, fmt.Errorf("library: file name is required")
	}

	basePath, err := l.sites.BasePath(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := l.client.Request(ctx, graph.Request{
		Endpoint: basePath + graph.ResolveFilePath(folderPath, fileName),
		Query:    query,
	})
	if err != nil {
		return nil, err
	}

	var item graph.Item
	if err := payload.Decode(&item); err != nil {
		return nil, err
	}

	return &item, nil
}
