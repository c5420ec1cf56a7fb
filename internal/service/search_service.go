// Package service 提供了课程文档检索与管理的业务逻辑。
package service

import (
	"context"
	"fmt"

	"course-rag-go/internal/model"
	"course-rag-go/internal/repository"
	"course-rag-go/internal/vectorstore"
	"course-rag-go/pkg/embedding"
	"course-rag-go/pkg/log"
)

// VectorSearcher 抽象了检索路径需要的向量库能力，由 *vectorstore.Store 实现。
type VectorSearcher interface {
	Search(ctx context.Context, tenantID string, queryEmbedding []float32, limit int) ([]vectorstore.ScoredFragment, error)
}

// SearchService 接口定义了课程内语义检索操作。
type SearchService interface {
	Search(ctx context.Context, courseID, query string, topK int) ([]model.SearchResponseDTO, error)
}

type searchService struct {
	embeddingClient embedding.Client
	store           VectorSearcher
	fileRepo        repository.CourseFileRepository
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(embeddingClient embedding.Client, store VectorSearcher, fileRepo repository.CourseFileRepository) SearchService {
	return &searchService{
		embeddingClient: embeddingClient,
		store:           store,
		fileRepo:        fileRepo,
	}
}

// Search 在一个课程的集合里做语义检索：
// 向量化用户问句 → 近邻检索 → 为命中片段补上可读的文件名。
func (s *searchService) Search(ctx context.Context, courseID, query string, topK int) ([]model.SearchResponseDTO, error) {
	log.Infof("[SearchService] 开始检索, course: %s, query: '%s', topK: %d", courseID, query, topK)

	// 1. 向量化查询
	queryVector, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		log.Errorf("[SearchService] 向量化查询失败: %v", err)
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}

	// 2. 近邻检索（课程没有集合时得到空结果，不报错）
	hits, err := s.store.Search(ctx, courseID, queryVector, topK)
	if err != nil {
		log.Errorf("[SearchService] 向量检索失败: %v", err)
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}
	if len(hits) == 0 {
		log.Infof("[SearchService] 检索无命中, course: %s", courseID)
		return []model.SearchResponseDTO{}, nil
	}

	// 3. 批量获取文件名
	uniqueIDs := make(map[string]struct{})
	for _, hit := range hits {
		uniqueIDs[hit.DocumentID] = struct{}{}
	}
	idList := make([]string, 0, len(uniqueIDs))
	for id := range uniqueIDs {
		idList = append(idList, id)
	}

	fileInfos, err := s.fileRepo.FindBatchByFileIDs(idList)
	if err != nil {
		log.Errorf("[SearchService] 批量查询文件信息失败: %v", err)
		return nil, fmt.Errorf("批量查询文件信息失败: %w", err)
	}
	fileNameMap := make(map[string]string)
	for _, info := range fileInfos {
		fileNameMap[info.FileID] = info.FileName
	}

	// 4. 组装最终结果
	results := make([]model.SearchResponseDTO, 0, len(hits))
	for _, hit := range hits {
		fileName := fileNameMap[hit.DocumentID]
		if fileName == "" {
			log.Warnf("[SearchService] 未找到文档 '%s' 对应的文件名", hit.DocumentID)
			fileName = "未知文件"
		}
		results = append(results, model.SearchResponseDTO{
			FragmentID: hit.FragmentID,
			DocumentID: hit.DocumentID,
			FileName:   fileName,
			Text:       hit.Text,
			Score:      hit.Score,
			Distance:   hit.Distance,
			Metadata:   hit.Metadata,
		})
	}

	log.Infof("[SearchService] 检索完成, course: %s, 返回 %d 条结果", courseID, len(results))
	return results, nil
}
