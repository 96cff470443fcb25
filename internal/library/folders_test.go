package library

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spdrive/spdrive/internal/graph"
)

func TestListFoldersFiltersFolders(t *testing.T) {
	var gotFilter string

	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotFilter = r.URL.Query().Get("$filter")

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"value": [
				{"id": "d1", "name": "Archive", "folder": {"childCount": 12}},
				{"id": "d2", "name": "Drafts", "folder": {"childCount": 0}}
			]}`))
		})
	})

	folders, err := lib.ListFolders(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "folder ne null", gotFilter)
	require.Len(t, folders, 2)
	assert.Equal(t, "Archive", folders[0].Name)
	assert.Equal(t, 12, folders[0].ChildCount)
}

func TestCreateFolderFailsOnConflict(t *testing.T) {
	var gotBody []byte

	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotBody, _ = io.ReadAll(r.Body)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": "new-folder", "name": "Q4", "folder": {"childCount": 0}}`))
		})
	})

	folder, err := lib.CreateFolder(context.Background(), "Reports", "Q4")
	require.NoError(t, err)

	assert.Equal(t, "Q4", folder.Name)
	assert.JSONEq(t, `{
		"name": "Q4",
		"folder": {},
		"@microsoft.graph.conflictBehavior": "fail"
	}`, string(gotBody))
}

func TestCreateFolderRequiresName(t *testing.T) {
	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.NotFoundHandler()
	})

	_, err := lib.CreateFolder(context.Background(), "Reports", "")
	require.Error(t, err)
}

func TestCreateFolderConflictPropagates(t *testing.T) {
	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error": {"code": "nameAlreadyExists", "message": "The name already exists"}}`))
		})
	})

	_, err := lib.CreateFolder(context.Background(), "Reports", "Q4")
	assert.ErrorIs(t, err, graph.ErrConflict)
}

func TestDeleteFolderGuardsNonEmpty(t *testing.T) {
	var deleted bool

	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodDelete {
				deleted = true
				w.WriteHeader(http.StatusNoContent)

				return
			}

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"value": [{"id": "child", "name": "still-here.txt"}]}`))
		})
	})

	err := lib.DeleteFolder(context.Background(), "Full")
	require.ErrorIs(t, err, ErrFolderNotEmpty)
	assert.False(t, deleted, "no delete request may be sent for a non-empty folder")
}

func TestDeleteFolderEmpty(t *testing.T) {
	var gotDeletePath string

	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodDelete {
				gotDeletePath = r.URL.Path
				w.WriteHeader(http.StatusNoContent)

				return
			}

			assert.Equal(t, "1", r.URL.Query().Get("$top"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"value": []}`))
		})
	})

	require.NoError(t, lib.DeleteFolder(context.Background(), "Empty"))
	assert.Equal(t, basePath+"/root:/Empty:", gotDeletePath)
}

func TestDeleteFolderRequiresPath(t *testing.T) {
	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.NotFoundHandler()
	})

	assert.Error(t, lib.DeleteFolder(context.Background(), ""))
}

func TestFolderTree(t *testing.T) {
	listings := map[string]string{
		basePath + "/root/children":     `{"value": [{"id": "a", "name": "A", "folder": {"childCount": 1}}]}`,
		basePath + "/root:/A:/children": `{"value": []}`,
	}

	lib := newTestLibrary(t, testLimits, func(func() string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, ok := listings[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)

				return
			}

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	})

	nodes, err := lib.FolderTree(context.Background(), "", 2)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	assert.Equal(t, "A", nodes[0].Name)
	assert.Equal(t, graph.TreeExpanded, nodes[0].State)
	assert.Empty(t, nodes[0].Children)
}
