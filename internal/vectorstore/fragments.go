package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"course-rag-go/pkg/log"
)

// UpsertFragments 把一批片段写入租户的集合。
// 前置条件：集合已由 EnsureCollection 创建，且维度与所有带向量的片段一致。
// 没有向量的片段对检索毫无用处，会被跳过（记日志，不入库）；
// 其余片段在一个事务里批量 upsert，主键冲突时整行覆盖（后写覆盖先写，不做合并），
// 整批要么全部可见要么全部回滚。空批或全部被跳过视为成功。
func (s *Store) UpsertFragments(ctx context.Context, tenantID string, frags []Fragment) error {
	table, err := s.tableName(tenantID)
	if err != nil {
		return err
	}

	rows := make([]Fragment, 0, len(frags))
	for _, f := range frags {
		if len(f.Embedding) == 0 {
			log.Warnf("[VectorStore] 片段缺少向量，跳过入库, fragment: %s, document: %s", f.ID, f.DocumentID)
			continue
		}
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		rows = append(rows, f)
	}
	if len(rows) == 0 {
		return nil
	}

	// 写入任何一行之前先校验维度，任何一行不一致都整体拒绝。
	dim, err := s.collectionDimension(ctx, table)
	if err != nil {
		return err
	}
	for _, f := range rows {
		if len(f.Embedding) != dim {
			return wrapErrf(ErrDimensionMismatch,
				"片段 %s 的向量维度为 %d, 集合 %s 声明的维度为 %d", f.ID, len(f.Embedding), table, dim)
		}
	}

	upsertSQL := fmt.Sprintf(`INSERT INTO %s (fragment_id, tenant_id, document_id, text, metadata, embedding)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (fragment_id) DO UPDATE SET
	tenant_id   = EXCLUDED.tenant_id,
	document_id = EXCLUDED.document_id,
	text        = EXCLUDED.text,
	metadata    = EXCLUDED.metadata,
	embedding   = EXCLUDED.embedding`, table)

	err = s.withTx(ctx, ErrWrite, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, f := range rows {
			meta := f.Metadata
			if meta == nil {
				meta = map[string]any{}
			}
			b.Queue(upsertSQL, f.ID, tenantID, f.DocumentID, f.Text, meta, pgvector.NewVector(f.Embedding))
		}
		br := tx.SendBatch(ctx, b)
		for range rows {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return wrapErr(ErrWrite, err)
			}
		}
		if err := br.Close(); err != nil {
			return wrapErr(ErrWrite, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Infof("[VectorStore] 批量写入集合 %s 成功, 共 %d 个片段 (跳过 %d 个)", table, len(rows), len(frags)-len(rows))
	return nil
}

// DeleteFragmentsByDocument 删除租户集合里属于指定文档的全部片段。
// 集合不存在视为成功（没有可删的东西，不是错误）；删到 0 行同样是成功。
func (s *Store) DeleteFragmentsByDocument(ctx context.Context, tenantID, documentID string) error {
	table, err := s.tableName(tenantID)
	if err != nil {
		return err
	}
	exists, err := s.collectionExists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	tag, err := conn.Exec(ctx, "DELETE FROM "+table+" WHERE document_id = $1", documentID)
	if err != nil {
		return wrapErr(ErrWrite, err)
	}
	log.Infof("[VectorStore] 按文档删除片段完成, 集合: %s, document: %s, 删除 %d 行", table, documentID, tag.RowsAffected())
	return nil
}
