package graph

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/spdrive/spdrive/internal/config"
)

// documentLibraryDriveType is the Graph driveType for SharePoint document
// libraries.
const documentLibraryDriveType = "documentLibrary"

// fallbackLibraryName matches the default library on sites where the
// configured name does not exist (localized sites expose "Documents").
const fallbackLibraryName = "Documents"

// drivesResponse is the shape of GET /sites/{id}/drives.
type drivesResponse struct {
	Value []driveInfo `json:"value"`
}

type driveInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DriveType string `json:"driveType"`
}

// SiteResolver maps the configured site URL and library name to Graph
// identifiers and builds the base path for all drive operations. Resolved
// identifiers are cached for the process lifetime; configured IDs
// short-circuit discovery entirely.
type SiteResolver struct {
	client *Client
	cfg    config.SharePointConfig
	logger *slog.Logger

	mu      sync.Mutex
	siteID  string
	driveID string
}

// NewSiteResolver creates a resolver over the given client.
func NewSiteResolver(client *Client, cfg config.SharePointConfig, logger *slog.Logger) *SiteResolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &SiteResolver{client: client, cfg: cfg, logger: logger}
}

// SiteID returns the site identifier, discovering it from the configured
// site URL on first use.
func (r *SiteResolver) SiteID(ctx context.Context) (string, error) {
	if r.cfg.SiteID != "" {
		return r.cfg.SiteID, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.siteID != "" {
		return r.siteID, nil
	}

	if r.cfg.SiteURL == "" {
		return "", fmt.Errorf("graph: no site_id or site_url configured")
	}

	siteURL, err := url.Parse(r.cfg.SiteURL)
	if err != nil {
		return "", fmt.Errorf("graph: invalid site URL %q: %w", r.cfg.SiteURL, err)
	}

	payload, err := r.client.Request(ctx, Request{
		Endpoint: fmt.Sprintf("/sites/%s:%s", siteURL.Hostname(), siteURL.Path),
	})
	if err != nil {
		return "", fmt.Errorf("graph: resolving site ID: %w", err)
	}

	id := payload.Get("id").String()
	if id == "" {
		return "", fmt.Errorf("graph: site lookup for %q returned no id", r.cfg.SiteURL)
	}

	r.logger.Info("resolved site ID",
		slog.String("site_url", r.cfg.SiteURL),
		slog.String("site_id", id),
	)

	r.siteID = id

	return id, nil
}

// DriveID returns the document library's drive identifier, discovering it
// from the site's drive list on first use. Match order: configured library
// name, then "Documents", then any document library.
func (r *SiteResolver) DriveID(ctx context.Context) (string, error) {
	if r.cfg.DriveID != "" {
		return r.cfg.DriveID, nil
	}

	siteID, err := r.SiteID(ctx)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.driveID != "" {
		return r.driveID, nil
	}

	payload, err := r.client.Request(ctx, Request{
		Endpoint: fmt.Sprintf("/sites/%s/drives", siteID),
	})
	if err != nil {
		return "", fmt.Errorf("graph: listing drives: %w", err)
	}

	var drives drivesResponse
	if err := payload.Decode(&drives); err != nil {
		return "", err
	}

	id := pickDrive(drives.Value, r.cfg.DocLibrary)
	if id == "" {
		return "", fmt.Errorf("graph: document library %q not found", r.cfg.DocLibrary)
	}

	r.logger.Info("resolved drive ID",
		slog.String("library", r.cfg.DocLibrary),
		slog.String("drive_id", id),
	)

	r.driveID = id

	return id, nil
}

// BasePath returns "/sites/{siteId}/drives/{driveId}", the prefix for all
// drive-item operations.
func (r *SiteResolver) BasePath(ctx context.Context) (string, error) {
	siteID, err := r.SiteID(ctx)
	if err != nil {
		return "", err
	}

	driveID, err := r.DriveID(ctx)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("/sites/%s/drives/%s", siteID, driveID), nil
}

// pickDrive applies the library match order.
func pickDrive(drives []driveInfo, library string) string {
	for _, d := range drives {
		if d.Name == library {
			return d.ID
		}
	}

	for _, d := range drives {
		if d.Name == fallbackLibraryName {
			return d.ID
		}
	}

	for _, d := range drives {
		if d.DriveType == documentLibraryDriveType {
			return d.ID
		}
	}

	return ""
}
