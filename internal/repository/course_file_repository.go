// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"course-rag-go/internal/model"
)

// indexingMarkTTL 是“任务已入队”标记的过期时间，防止任务丢失后永久卡住。
const indexingMarkTTL = 30 * time.Minute

// CourseFileRepository 接口定义了课程文件元数据相关的数据持久化操作。
type CourseFileRepository interface {
	// CourseFile operations (GORM)
	UpsertRecord(record *model.CourseFile) error
	GetRecord(courseID, fileID string) (*model.CourseFile, error)
	FindByCourseID(courseID string) ([]model.CourseFile, error)
	FindBatchByFileIDs(fileIDs []string) ([]*model.CourseFile, error)
	UpdateStatus(courseID, fileID string, status int) error
	MarkIndexed(courseID, fileID string) error
	DeleteRecord(courseID, fileID string) error

	// Enqueue-mark operations (Redis)
	IsEnqueued(ctx context.Context, courseID, fileID string) (bool, error)
	MarkEnqueued(ctx context.Context, courseID, fileID string) error
	ClearEnqueued(ctx context.Context, courseID, fileID string) error
}

// courseFileRepository 是 CourseFileRepository 接口的 GORM+Redis 实现。
type courseFileRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewCourseFileRepository 创建一个新的 CourseFileRepository 实例。
func NewCourseFileRepository(db *gorm.DB, redisClient *redis.Client) CourseFileRepository {
	return &courseFileRepository{db: db, redisClient: redisClient}
}

// getEnqueueKey generates the redis key for the enqueue mark.
func (r *courseFileRepository) getEnqueueKey(courseID, fileID string) string {
	return "index:enqueued:" + courseID + ":" + fileID
}

// UpsertRecord 写入或覆盖一条课程文件元数据记录。
func (r *courseFileRepository) UpsertRecord(record *model.CourseFile) error {
	var existing model.CourseFile
	err := r.db.Where("course_id = ? AND file_id = ?", record.CourseID, record.FileID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(record).Error
	}
	if err != nil {
		return err
	}
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	return r.db.Save(record).Error
}

// GetRecord 按课程与文件标识检索一条记录，不存在时返回 nil。
func (r *courseFileRepository) GetRecord(courseID, fileID string) (*model.CourseFile, error) {
	var record model.CourseFile
	err := r.db.Where("course_id = ? AND file_id = ?", courseID, fileID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByCourseID 列出一个课程名下的全部文件记录。
func (r *courseFileRepository) FindByCourseID(courseID string) ([]model.CourseFile, error) {
	var records []model.CourseFile
	err := r.db.Where("course_id = ?", courseID).Order("file_name asc").Find(&records).Error
	return records, err
}

// FindBatchByFileIDs 批量查询文件记录，用于给检索结果补文件名。
func (r *courseFileRepository) FindBatchByFileIDs(fileIDs []string) ([]*model.CourseFile, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	var records []*model.CourseFile
	err := r.db.Where("file_id IN ?", fileIDs).Find(&records).Error
	return records, err
}

// UpdateStatus 更新一条记录的索引状态。
func (r *courseFileRepository) UpdateStatus(courseID, fileID string, status int) error {
	return r.db.Model(&model.CourseFile{}).
		Where("course_id = ? AND file_id = ?", courseID, fileID).
		Update("status", status).Error
}

// MarkIndexed 把一条记录标记为已索引并记录完成时间。
func (r *courseFileRepository) MarkIndexed(courseID, fileID string) error {
	now := time.Now()
	return r.db.Model(&model.CourseFile{}).
		Where("course_id = ? AND file_id = ?", courseID, fileID).
		Updates(map[string]interface{}{"status": model.FileStatusIndexed, "indexed_at": &now}).Error
}

// DeleteRecord 删除一条课程文件记录。
func (r *courseFileRepository) DeleteRecord(courseID, fileID string) error {
	return r.db.Where("course_id = ? AND file_id = ?", courseID, fileID).Delete(&model.CourseFile{}).Error
}

// IsEnqueued 检查某个文件是否已有在途的索引任务。
func (r *courseFileRepository) IsEnqueued(ctx context.Context, courseID, fileID string) (bool, error) {
	n, err := r.redisClient.Exists(ctx, r.getEnqueueKey(courseID, fileID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkEnqueued 打上“任务已入队”标记，避免同一文件被重复投递。
func (r *courseFileRepository) MarkEnqueued(ctx context.Context, courseID, fileID string) error {
	return r.redisClient.Set(ctx, r.getEnqueueKey(courseID, fileID), 1, indexingMarkTTL).Err()
}

// ClearEnqueued 清除入队标记（任务完成或失败后调用）。
func (r *courseFileRepository) ClearEnqueued(ctx context.Context, courseID, fileID string) error {
	return r.redisClient.Del(ctx, r.getEnqueueKey(courseID, fileID)).Err()
}
