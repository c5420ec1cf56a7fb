package service

import (
	"context"
	"fmt"

	"course-rag-go/internal/pipeline"
	"course-rag-go/internal/repository"
	"course-rag-go/pkg/log"
)

// FragmentDeleter 抽象了删除路径需要的向量库能力，由 *vectorstore.Store 实现。
type FragmentDeleter interface {
	DeleteFragmentsByDocument(ctx context.Context, tenantID, documentID string) error
	DeleteRecord(ctx context.Context, tenantID, fileID string) error
}

// ObjectRemover 抽象了对象缓存的清除能力，由 *pipeline.MinioCache 实现。
type ObjectRemover interface {
	Remove(ctx context.Context, objectName string) error
}

// DocumentService 接口定义了课程文档的删除操作。
type DocumentService interface {
	// DeleteDocument 删除一个文档的全部索引痕迹：向量片段、变更台账记录、
	// 元数据记录与缓存的原始字节。台账记录一并删除，之后重新加入的
	// 同名文件会被当作新文件。
	DeleteDocument(ctx context.Context, courseID, fileID string) error
}

type documentService struct {
	store    FragmentDeleter
	fileRepo repository.CourseFileRepository
	cache    ObjectRemover
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(store FragmentDeleter, fileRepo repository.CourseFileRepository, cache ObjectRemover) DocumentService {
	return &documentService{
		store:    store,
		fileRepo: fileRepo,
		cache:    cache,
	}
}

// DeleteDocument 按文档删除。片段表和台账可能处于不同的演化阶段
// （例如上次写片段成功但写台账失败），所以两边各删各的，互不为前置条件。
func (s *documentService) DeleteDocument(ctx context.Context, courseID, fileID string) error {
	log.Infof("[DocumentService] 开始删除文档, course: %s, file: %s", courseID, fileID)

	if err := s.store.DeleteFragmentsByDocument(ctx, courseID, fileID); err != nil {
		log.Errorf("[DocumentService] 删除向量片段失败, course: %s, file: %s, error: %v", courseID, fileID, err)
		return fmt.Errorf("删除向量片段失败: %w", err)
	}
	if err := s.store.DeleteRecord(ctx, courseID, fileID); err != nil {
		log.Errorf("[DocumentService] 删除台账记录失败, course: %s, file: %s, error: %v", courseID, fileID, err)
		return fmt.Errorf("删除台账记录失败: %w", err)
	}
	if err := s.fileRepo.DeleteRecord(courseID, fileID); err != nil {
		log.Errorf("[DocumentService] 删除元数据记录失败, course: %s, file: %s, error: %v", courseID, fileID, err)
		return fmt.Errorf("删除元数据记录失败: %w", err)
	}

	// 缓存的原始字节是冗余副本，清除失败只记日志，不影响删除结果
	if s.cache != nil {
		if err := s.cache.Remove(ctx, pipeline.CacheObjectName(courseID, fileID)); err != nil {
			log.Warnf("[DocumentService] 清除对象缓存失败, course: %s, file: %s, error: %v", courseID, fileID, err)
		}
	}

	log.Infof("[DocumentService] 文档删除完成, course: %s, file: %s", courseID, fileID)
	return nil
}
