package library

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spdrive/spdrive/internal/config"
	"github.com/spdrive/spdrive/internal/graph"
)

// basePath matches the configured site and drive IDs below.
const basePath = "/sites/site-1/drives/drive-1"

// staticTokens satisfies graph.TokenProvider with a fixed token.
type staticTokens struct{}

func (staticTokens) AccessToken(_ context.Context) (string, error) {
	return "test-token", nil
}

var testLimits = config.LimitsConfig{
	PageSize:           100,
	MaxResults:         200,
	MaxTreeDepth:       15,
	MaxFoldersPerLevel: 100,
	TreeFanout:         4,
}

// newTestLibrary wires a Library against an httptest server running the
// given handler. The server URL is passed to the handler factory so
// responses can embed absolute URLs (download and nextLink).
func newTestLibrary(t *testing.T, limits config.LimitsConfig, makeHandler func(serverURL func() string) http.Handler) *Library {
	t.Helper()

	var srv *httptest.Server

	serverURL := func() string { return srv.URL }
	srv = httptest.NewServer(makeHandler(serverURL))
	t.Cleanup(srv.Close)

	client := graph.NewClient(srv.URL, srv.Client(), staticTokens{}, nil)
	sites := graph.NewSiteResolver(client, config.SharePointConfig{SiteID: "site-1", DriveID: "drive-1"}, nil)

	return New(client, sites, limits, nil)
}

func TestListDocumentsFiltersFiles(t *testing.T) {
	var gotFilter string

	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotFilter = r.URL.Query().Get("$filter")

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"value": [
				{"id": "f1", "name": "report.docx", "size": 2048,
				 "file": {"mimeType": "application/vnd.openxmlformats-officedocument.wordprocessingml.document"}},
				{"id": "f2", "name": "notes.txt", "size": 10, "file": {"mimeType": "text/plain"}}
			]}`))
		})
	})

	docs, err := lib.ListDocuments(context.Background(), "Reports")
	require.NoError(t, err)

	assert.Equal(t, "file ne null", gotFilter)
	require.Len(t, docs, 2)
	assert.Equal(t, "report.docx", docs[0].Name)
	assert.Equal(t, int64(2048), docs[0].Size)
	assert.Equal(t, "text/plain", docs[1].MimeType)
}

func TestListDocumentsFollowsNextLinkUpToCap(t *testing.T) {
	limits := testLimits
	limits.MaxResults = 3

	var pages int

	lib := newTestLibrary(t, limits, func(serverURL func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pages++

			w.Header().Set("Content-Type", "application/json")

			page := map[string]any{
				"value": []map[string]any{
					{"id": fmt.Sprintf("id-%d-a", pages), "name": fmt.Sprintf("doc-%d-a.txt", pages), "file": map[string]any{}},
					{"id": fmt.Sprintf("id-%d-b", pages), "name": fmt.Sprintf("doc-%d-b.txt", pages), "file": map[string]any{}},
				},
				"@odata.nextLink": serverURL() + basePath + "/root/children?$skiptoken=p" + fmt.Sprint(pages),
			}

			_ = json.NewEncoder(w).Encode(page)
		})
	})

	docs, err := lib.ListDocuments(context.Background(), "")
	require.NoError(t, err)

	// Two pages of two cover the cap of three; the endless nextLink chain
	// must not be followed further.
	assert.Equal(t, 2, pages)
	assert.Len(t, docs, 3)
}

func TestStatDocument(t *testing.T) {
	var gotPath string

	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": "f1", "name": "summary.docx", "size": 512,
				"webUrl": "https://contoso.sharepoint.com/doc", "file": {"mimeType": "application/msword"}}`))
		})
	})

	doc, err := lib.StatDocument(context.Background(), "Reports/Q3", "summary.docx")
	require.NoError(t, err)

	assert.Equal(t, basePath+"/root:/Reports/Q3/summary.docx:", gotPath)
	assert.Equal(t, "summary.docx", doc.Name)
	assert.Equal(t, int64(512), doc.Size)
	assert.Equal(t, "application/msword", doc.MimeType)
}

func TestReadDocumentTextEncoding(t *testing.T) {
	lib := newTestLibrary(t, testLimits, func(serverURL func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/dl/notes" {
				w.Header().Set("Content-Type", "text/plain")
				_, _ = w.Write([]byte("hello world"))

				return
			}

			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprintf(w, `{"id": "f1", "name": "notes.txt", "size": 11,
				"file": {"mimeType": "text/plain"},
				"@microsoft.graph.downloadUrl": "%s/dl/notes"}`, serverURL())
		})
	})

	doc, err := lib.ReadDocument(context.Background(), "", "notes.txt")
	require.NoError(t, err)

	assert.Equal(t, EncodingText, doc.Encoding)
	assert.Equal(t, "hello world", doc.Content)
}

func TestReadDocumentBinaryEncoding(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47, 0x00}

	lib := newTestLibrary(t, testLimits, func(serverURL func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/dl/img" {
				w.Header().Set("Content-Type", "image/png")
				_, _ = w.Write(raw)

				return
			}

			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprintf(w, `{"id": "f1", "name": "logo.png", "size": 5,
				"file": {"mimeType": "image/png"},
				"@microsoft.graph.downloadUrl": "%s/dl/img"}`, serverURL())
		})
	})

	doc, err := lib.ReadDocument(context.Background(), "Assets", "logo.png")
	require.NoError(t, err)

	assert.Equal(t, EncodingBase64, doc.Encoding)

	decoded, err := base64.StdEncoding.DecodeString(doc.Content)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestReadDocumentMissingDownloadURL(t *testing.T) {
	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": "f1", "name": "odd.txt", "file": {}}`))
		})
	})

	_, err := lib.ReadDocument(context.Background(), "", "odd.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download URL")
}

func TestUploadDocument(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotBody   []byte
	)

	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.Path
			gotBody, _ = io.ReadAll(r.Body)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": "new", "name": "a.bin", "size": 3}`))
		})
	})

	doc, err := lib.UploadDocument(context.Background(), "Uploads", "a.bin", []byte{1, 2, 3})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, basePath+"/root:/Uploads/a.bin:/content", gotPath)
	assert.Equal(t, []byte{1, 2, 3}, gotBody)
	assert.Equal(t, "a.bin", doc.Name)
}

func TestUploadDocumentRequiresName(t *testing.T) {
	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.NotFoundHandler()
	})

	_, err := lib.UploadDocument(context.Background(), "Uploads", "", []byte("x"))
	require.Error(t, err)
}

func TestDeleteDocument(t *testing.T) {
	var gotMethod, gotPath string

	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		})
	})

	require.NoError(t, lib.DeleteDocument(context.Background(), "Old", "drop.txt"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, basePath+"/root:/Old/drop.txt:", gotPath)
}

func TestMetadataFields(t *testing.T) {
	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "listItem($expand=fields)", r.URL.Query().Get("$expand"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": "f1", "name": "proposal.docx",
				"listItem": {"id": "li-1", "fields": {"Status": "Approved", "Reviewer": "pat"}}}`))
		})
	})

	doc, fields, err := lib.Metadata(context.Background(), "", "proposal.docx")
	require.NoError(t, err)

	assert.Equal(t, "proposal.docx", doc.Name)
	assert.Equal(t, "Approved", fields["Status"])
	assert.Equal(t, "pat", fields["Reviewer"])
}

func TestUpdateMetadataPatchesFields(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotBody   []byte
	)

	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id": "item-9", "name": "proposal.docx"}`))

				return
			}

			gotMethod = r.Method
			gotPath = r.URL.Path
			gotBody, _ = io.ReadAll(r.Body)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"Status": "Final"}`))
		})
	})

	err := lib.UpdateMetadata(context.Background(), "", "proposal.docx", map[string]any{"Status": "Final"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/sites/site-1/drive/items/item-9/listItem/fields", gotPath)
	assert.JSONEq(t, `{"Status": "Final"}`, string(gotBody))
}

func TestUpdateMetadataRequiresFields(t *testing.T) {
	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.NotFoundHandler()
	})

	err := lib.UpdateMetadata(context.Background(), "", "proposal.docx", nil)
	require.Error(t, err)
}

func TestIsTextContent(t *testing.T) {
	tests := []struct {
		mime string
		name string
		want bool
	}{
		{"text/plain", "a.txt", true},
		{"application/json", "data.json", true},
		{"application/octet-stream", "readme.md", true},
		{"application/octet-stream", "app.exe", false},
		{"image/png", "logo.png", false},
		{"", "script.py", true},
		{"", "archive.zip", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, isTextContent(tc.mime, tc.name), "%s %s", tc.mime, tc.name)
	}
}
