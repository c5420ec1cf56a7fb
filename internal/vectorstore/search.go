package vectorstore

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"course-rag-go/pkg/log"
)

// Search 在租户的集合里检索与查询向量最相近的 limit 个片段，
// 按欧氏距离升序排列。limit 会被收敛到 [1, MaxTopK] 区间。
// 集合不存在时返回空结果而不是报错（优雅降级的默认策略）。
// 这是纯读路径：不开写事务，也不需要回滚。
func (s *Store) Search(ctx context.Context, tenantID string, queryEmbedding []float32, limit int) ([]ScoredFragment, error) {
	table, err := s.tableName(tenantID)
	if err != nil {
		return nil, err
	}
	limit = s.clampLimit(limit)

	exists, err := s.collectionExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Infof("[VectorStore] 集合 %s 不存在, 返回空结果", table)
		return []ScoredFragment{}, nil
	}

	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}

	querySQL := fmt.Sprintf(`SELECT fragment_id, document_id, text, metadata, embedding <-> $1 AS distance
FROM %s
ORDER BY embedding <-> $1 ASC
LIMIT $2`, table)

	rowsIter, err := conn.Query(ctx, querySQL, pgvector.NewVector(queryEmbedding), limit)
	if err != nil {
		return nil, wrapErr(ErrConnection, err)
	}
	defer rowsIter.Close()

	results := make([]ScoredFragment, 0, limit)
	for rowsIter.Next() {
		var sf ScoredFragment
		if err := rowsIter.Scan(&sf.FragmentID, &sf.DocumentID, &sf.Text, &sf.Metadata, &sf.Distance); err != nil {
			return nil, wrapErr(ErrConnection, err)
		}
		sf.Score = distanceToScore(sf.Distance)
		results = append(results, sf)
	}
	if err := rowsIter.Err(); err != nil {
		return nil, wrapErr(ErrConnection, err)
	}

	log.Infof("[VectorStore] 检索集合 %s 完成, limit: %d, 命中 %d 条", table, limit, len(results))
	return results, nil
}

// clampLimit 把请求的条数收敛到合法区间，不会静默放行无界的结果集。
func (s *Store) clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > s.cfg.MaxTopK {
		return s.cfg.MaxTopK
	}
	return limit
}

// distanceToScore 把欧氏距离转换为相似度分数 1 - d。
// 注意：这不是余弦相似度，距离大于 1 时分数为负，只能用作排序信号。
func distanceToScore(d float64) float64 {
	return 1 - d
}
