package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-rag-go/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---- 服务层替身 ----

type fakeSearchService struct {
	results []model.SearchResponseDTO
	err     error
	gotTopK int
}

func (f *fakeSearchService) Search(_ context.Context, _, _ string, topK int) ([]model.SearchResponseDTO, error) {
	f.gotTopK = topK
	return f.results, f.err
}

type fakeCourseService struct {
	enqueued int
	files    []model.CourseFile
	err      error
}

func (f *fakeCourseService) SyncCourse(context.Context, string) (int, error) {
	return f.enqueued, f.err
}

func (f *fakeCourseService) ListCourseFiles(context.Context, string) ([]model.CourseFile, error) {
	return f.files, f.err
}

type fakeDocumentService struct {
	deleted []string
	err     error
}

func (f *fakeDocumentService) DeleteDocument(_ context.Context, courseID, fileID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, courseID+":"+fileID)
	return nil
}

func newRouter(search *fakeSearchService, course *fakeCourseService, document *fakeDocumentService) *gin.Engine {
	r := gin.New()
	api := r.Group("/api/v1")
	if search != nil {
		api.GET("/search", NewSearchHandler(search).Search)
	}
	if course != nil {
		h := NewCourseHandler(course)
		api.POST("/courses/:courseId/sync", h.SyncCourse)
		api.GET("/courses/:courseId/files", h.ListCourseFiles)
	}
	if document != nil {
		api.DELETE("/documents/:fileId", NewDocumentHandler(document).DeleteDocument)
	}
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestSearchEndpoint(t *testing.T) {
	svc := &fakeSearchService{results: []model.SearchResponseDTO{
		{FragmentID: "f1_0", DocumentID: "f1", FileName: "讲义.pdf", Text: "内容", Score: 0.9},
	}}
	r := newRouter(svc, nil, nil)

	w, body := doRequest(t, r, "GET", "/api/v1/search?courseId=cs101&query=%E8%AF%AD%E6%B3%95&topK=5")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(200), body["code"])
	assert.Equal(t, 5, svc.gotTopK)

	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
}

func TestSearchEndpointMissingParams(t *testing.T) {
	r := newRouter(&fakeSearchService{}, nil, nil)

	w, body := doRequest(t, r, "GET", "/api/v1/search?courseId=cs101")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, body["error"])
}

func TestSearchEndpointDefaultTopK(t *testing.T) {
	svc := &fakeSearchService{}
	r := newRouter(svc, nil, nil)

	// topK 缺省或非法时回退到 10。
	w, _ := doRequest(t, r, "GET", "/api/v1/search?courseId=cs101&query=q&topK=abc")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, svc.gotTopK)
}

func TestSearchEndpointServiceError(t *testing.T) {
	r := newRouter(&fakeSearchService{err: errors.New("boom")}, nil, nil)

	w, body := doRequest(t, r, "GET", "/api/v1/search?courseId=cs101&query=q")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, body["error"])
}

func TestSyncCourseEndpoint(t *testing.T) {
	r := newRouter(nil, &fakeCourseService{enqueued: 3}, nil)

	w, body := doRequest(t, r, "POST", "/api/v1/courses/cs101/sync")
	assert.Equal(t, http.StatusOK, w.Code)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), data["enqueued"])
}

func TestListCourseFilesEndpoint(t *testing.T) {
	r := newRouter(nil, &fakeCourseService{files: []model.CourseFile{
		{CourseID: "cs101", FileID: "f1", FileName: "a.pdf", Status: model.FileStatusIndexed},
	}}, nil)

	w, body := doRequest(t, r, "GET", "/api/v1/courses/cs101/files")
	assert.Equal(t, http.StatusOK, w.Code)
	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
}

func TestDeleteDocumentEndpoint(t *testing.T) {
	svc := &fakeDocumentService{}
	r := newRouter(nil, nil, svc)

	w, _ := doRequest(t, r, "DELETE", "/api/v1/documents/f1?courseId=cs101")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"cs101:f1"}, svc.deleted)
}

func TestDeleteDocumentEndpointMissingCourse(t *testing.T) {
	r := newRouter(nil, nil, &fakeDocumentService{})

	w, body := doRequest(t, r, "DELETE", "/api/v1/documents/f1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, body["error"])
}
