package service

import (
	"context"
	"errors"
	"time"

	"course-rag-go/internal/lms"
	"course-rag-go/internal/model"
	"course-rag-go/internal/vectorstore"
)

// ---- 本包测试共用的替身 ----

type fakeFileRepo struct {
	records       map[string]*model.CourseFile
	batchResults  []*model.CourseFile
	batchErr      error
	enqueuedMarks map[string]bool
	upsertErr     error
	deleted       []string
	deleteErr     error
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{
		records:       map[string]*model.CourseFile{},
		enqueuedMarks: map[string]bool{},
	}
}

func (f *fakeFileRepo) UpsertRecord(record *model.CourseFile) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.records[record.CourseID+":"+record.FileID] = record
	return nil
}

func (f *fakeFileRepo) GetRecord(courseID, fileID string) (*model.CourseFile, error) {
	return f.records[courseID+":"+fileID], nil
}

func (f *fakeFileRepo) FindByCourseID(courseID string) ([]model.CourseFile, error) {
	var out []model.CourseFile
	for _, r := range f.records {
		if r.CourseID == courseID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeFileRepo) FindBatchByFileIDs([]string) ([]*model.CourseFile, error) {
	return f.batchResults, f.batchErr
}

func (f *fakeFileRepo) UpdateStatus(courseID, fileID string, status int) error {
	if r, ok := f.records[courseID+":"+fileID]; ok {
		r.Status = status
	}
	return nil
}

func (f *fakeFileRepo) MarkIndexed(courseID, fileID string) error {
	return f.UpdateStatus(courseID, fileID, model.FileStatusIndexed)
}

func (f *fakeFileRepo) DeleteRecord(courseID, fileID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, courseID+":"+fileID)
	delete(f.records, courseID+":"+fileID)
	return nil
}

func (f *fakeFileRepo) IsEnqueued(_ context.Context, courseID, fileID string) (bool, error) {
	return f.enqueuedMarks[courseID+":"+fileID], nil
}

func (f *fakeFileRepo) MarkEnqueued(_ context.Context, courseID, fileID string) error {
	f.enqueuedMarks[courseID+":"+fileID] = true
	return nil
}

func (f *fakeFileRepo) ClearEnqueued(_ context.Context, courseID, fileID string) error {
	delete(f.enqueuedMarks, courseID+":"+fileID)
	return nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) CreateEmbedding(context.Context, string) ([]float32, error) {
	return f.vector, f.err
}

type fakeSearcher struct {
	hits []vectorstore.ScoredFragment
	err  error
}

func (f *fakeSearcher) Search(context.Context, string, []float32, int) ([]vectorstore.ScoredFragment, error) {
	return f.hits, f.err
}

type fakeSource struct {
	files []lms.CourseFileInfo
	err   error
}

func (f *fakeSource) ListCourseFiles(context.Context, string) ([]lms.CourseFileInfo, error) {
	return f.files, f.err
}

// fakeDetector 按文件 ID 判断是否需要重新处理。
type fakeDetector struct {
	modified map[string]bool
}

func (f *fakeDetector) IsNewOrModified(_ context.Context, _, fileID string, _ time.Time) bool {
	return f.modified[fileID]
}

type fakeDeleter struct {
	deletedFragments []string
	deletedRecords   []string
	fragmentsErr     error
	recordErr        error
}

func (f *fakeDeleter) DeleteFragmentsByDocument(_ context.Context, _, documentID string) error {
	if f.fragmentsErr != nil {
		return f.fragmentsErr
	}
	f.deletedFragments = append(f.deletedFragments, documentID)
	return nil
}

func (f *fakeDeleter) DeleteRecord(_ context.Context, _, fileID string) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.deletedRecords = append(f.deletedRecords, fileID)
	return nil
}

type fakeObjectRemover struct {
	removed []string
}

func (f *fakeObjectRemover) Remove(_ context.Context, objectName string) error {
	f.removed = append(f.removed, objectName)
	return nil
}

var errBoom = errors.New("boom")
