package service

import (
	"context"
	"fmt"
	"time"

	"course-rag-go/internal/lms"
	"course-rag-go/internal/model"
	"course-rag-go/internal/repository"
	"course-rag-go/pkg/log"
	"course-rag-go/pkg/tasks"
)

// CourseFileSource 抽象了课程平台的文件列表能力，由 *lms.Client 实现。
type CourseFileSource interface {
	ListCourseFiles(ctx context.Context, courseID string) ([]lms.CourseFileInfo, error)
}

// ChangeDetector 抽象了台账的变更判断能力，由 *vectorstore.Store 实现。
type ChangeDetector interface {
	IsNewOrModified(ctx context.Context, tenantID, fileID string, sourceModified time.Time) bool
}

// TaskProducer 把索引任务投递到消息队列，由 kafka.ProduceIndexTask 实现。
type TaskProducer func(task tasks.CourseIndexTask) error

// CourseService 接口定义了课程文件的同步与查询操作。
type CourseService interface {
	// SyncCourse 扫描课程的全部文件，为新增或已变更的文件投递索引任务，
	// 返回实际入队的任务数。
	SyncCourse(ctx context.Context, courseID string) (int, error)
	ListCourseFiles(ctx context.Context, courseID string) ([]model.CourseFile, error)
}

type courseService struct {
	source   CourseFileSource
	detector ChangeDetector
	fileRepo repository.CourseFileRepository
	produce  TaskProducer
}

// NewCourseService 创建一个新的 CourseService 实例。
func NewCourseService(source CourseFileSource, detector ChangeDetector, fileRepo repository.CourseFileRepository, produce TaskProducer) CourseService {
	return &courseService{
		source:   source,
		detector: detector,
		fileRepo: fileRepo,
		produce:  produce,
	}
}

// SyncCourse 对一个课程做一轮增量同步。
// 未变更的文件直接跳过；已在队列里的文件不重复投递。
func (s *courseService) SyncCourse(ctx context.Context, courseID string) (int, error) {
	log.Infof("[CourseService] 开始同步课程文件, course: %s", courseID)

	files, err := s.source.ListCourseFiles(ctx, courseID)
	if err != nil {
		log.Errorf("[CourseService] 获取课程文件列表失败, course: %s, error: %v", courseID, err)
		return 0, fmt.Errorf("获取课程文件列表失败: %w", err)
	}
	log.Infof("[CourseService] 课程 %s 共有 %d 个文件", courseID, len(files))

	enqueued := 0
	for _, f := range files {
		// 1. 变更检测：台账说没变就不重新处理
		if !s.detector.IsNewOrModified(ctx, courseID, f.ID, f.UpdatedAt) {
			log.Debugf("[CourseService] 文件未变更, 跳过, course: %s, file: %s", courseID, f.ID)
			continue
		}

		// 2. 去重：已有在途任务的文件不重复投递
		marked, err := s.fileRepo.IsEnqueued(ctx, courseID, f.ID)
		if err != nil {
			log.Warnf("[CourseService] 查询入队标记失败, 继续投递, course: %s, file: %s, error: %v", courseID, f.ID, err)
		}
		if marked {
			log.Infof("[CourseService] 文件已有在途任务, 跳过, course: %s, file: %s", courseID, f.ID)
			continue
		}

		// 3. 登记元数据（覆盖写，保留首次创建时间）
		record := &model.CourseFile{
			CourseID:         courseID,
			FileID:           f.ID,
			FileName:         f.DisplayName,
			Status:           model.FileStatusPending,
			SourceModifiedAt: f.UpdatedAt,
		}
		if err := s.fileRepo.UpsertRecord(record); err != nil {
			log.Errorf("[CourseService] 登记课程文件失败, course: %s, file: %s, error: %v", courseID, f.ID, err)
			continue
		}

		// 4. 投递索引任务
		task := tasks.CourseIndexTask{
			CourseID:         courseID,
			FileID:           f.ID,
			FileName:         f.DisplayName,
			DownloadURL:      f.URL,
			SourceModifiedAt: f.UpdatedAt,
		}
		if err := s.produce(task); err != nil {
			log.Errorf("[CourseService] 投递索引任务失败, course: %s, file: %s, error: %v", courseID, f.ID, err)
			continue
		}
		if err := s.fileRepo.MarkEnqueued(ctx, courseID, f.ID); err != nil {
			log.Warnf("[CourseService] 写入队标记失败, course: %s, file: %s, error: %v", courseID, f.ID, err)
		}
		enqueued++
	}

	log.Infof("[CourseService] 课程同步完成, course: %s, 入队 %d 个任务", courseID, enqueued)
	return enqueued, nil
}

// ListCourseFiles 列出一个课程已登记的文件及其索引状态。
func (s *courseService) ListCourseFiles(ctx context.Context, courseID string) ([]model.CourseFile, error) {
	return s.fileRepo.FindByCourseID(courseID)
}
