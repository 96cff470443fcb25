package graph

// Item mirrors the Graph API driveItem JSON for the fields this client
// selects. Timestamps stay in their RFC3339 wire form; callers that need
// time arithmetic parse them at the edge.
type Item struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Size                 int64        `json:"size"`
	WebURL               string       `json:"webUrl"`
	CreatedDateTime      string       `json:"createdDateTime"`
	LastModifiedDateTime string       `json:"lastModifiedDateTime"`
	File                 *FileFacet   `json:"file"`
	Folder               *FolderFacet `json:"folder"`
	ParentReference      *ParentRef   `json:"parentReference"`
	ListItem             *ListItem    `json:"listItem"`
	DownloadURL          string       `json:"@microsoft.graph.downloadUrl"` //nolint:tagliatelle // Graph API annotation key
}

// FileFacet is present on file items.
type FileFacet struct {
	MimeType string `json:"mimeType"`
}

// FolderFacet is present on folder items.
type FolderFacet struct {
	ChildCount int `json:"childCount"`
}

// ParentRef identifies the containing drive and folder.
type ParentRef struct {
	ID      string `json:"id"`
	DriveID string `json:"driveId"`
}

// ListItem carries the SharePoint list-item view of a drive item,
// including custom column values when $expand=listItem($expand=fields).
type ListItem struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// ListPage is one page of a children collection.
type ListPage struct {
	Value    []Item `json:"value"`
	NextLink string `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

// IsFolder reports whether the item carries a folder facet.
func (it *Item) IsFolder() bool {
	return it.Folder != nil
}

// ChildCount returns the folder child count, or zero for files.
func (it *Item) ChildCount() int {
	if it.Folder == nil {
		return 0
	}

	return it.Folder.ChildCount
}

// MimeType returns the file MIME type, or empty for folders.
func (it *Item) MimeType() string {
	if it.File == nil {
		return ""
	}

	return it.File.MimeType
}
