package lms

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-rag-go/internal/config"
)

func newTestClient(serverURL string) *Client {
	return NewClient(config.LMSConfig{BaseURL: serverURL, AccessToken: "token-123"})
}

func TestListCourseFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses/cs101/files", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "f1", "display_name": "第一讲.pdf", "updated_at": "2026-03-01T10:00:00Z", "url": "https://lms/files/f1", "size": 1024},
			{"id": "f2", "display_name": "第二讲.pptx", "updated_at": "2026-03-02T10:00:00Z", "url": "https://lms/files/f2", "size": 2048}
		]`))
	}))
	defer srv.Close()

	files, err := newTestClient(srv.URL).ListCourseFiles(context.Background(), "cs101")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "f1", files[0].ID)
	assert.Equal(t, "第一讲.pdf", files[0].DisplayName)
	assert.Equal(t, int64(1024), files[0].Size)
	assert.Equal(t, 2026, files[0].UpdatedAt.Year())
}

func TestListCourseFilesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ListCourseFiles(context.Background(), "cs101")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestListCourseFilesBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ListCourseFiles(context.Background(), "cs101")
	assert.Error(t, err)
}

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("文件内容"))
	}))
	defer srv.Close()

	body, err := newTestClient(srv.URL).DownloadFile(context.Background(), srv.URL+"/files/f1/download")
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "文件内容", string(raw))
}

func TestDownloadFileNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).DownloadFile(context.Background(), srv.URL+"/files/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
