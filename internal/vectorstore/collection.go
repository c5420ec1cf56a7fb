package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"course-rag-go/pkg/log"
)

// EnsureCollection 确保租户的片段表与近邻索引存在。
// 表已存在时直接成功，且不会用请求的维度去校验既有集合：
// 集合的维度以第一次创建时为准，终身不变（已知限制：后续传入
// 不同的维度既不会升级表结构也不会报错，维度问题会在写入时暴露）。
// 建表与建索引在同一事务内提交；建索引失败时整体回滚，不留下没有索引的裸表。
func (s *Store) EnsureCollection(ctx context.Context, tenantID string, dim int) error {
	if dim <= 0 {
		return wrapErrf(ErrSchema, "非法的向量维度: %d", dim)
	}
	table, err := s.tableName(tenantID)
	if err != nil {
		return err
	}

	exists, err := s.collectionExists(ctx, table)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	createTable := fmt.Sprintf(`CREATE TABLE %s (
	fragment_id TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	document_id TEXT NOT NULL,
	text        TEXT NOT NULL DEFAULT '',
	metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
	embedding   VECTOR(%d) NOT NULL
)`, table, dim)

	log.Infof("[VectorStore] 创建集合 %s, 维度: %d, 索引类型: %s", table, dim, s.cfg.IndexKind)
	return s.withTx(ctx, ErrSchema, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createTable); err != nil {
			return wrapErr(ErrSchema, err)
		}
		if _, err := tx.Exec(ctx, s.indexSQL(table)); err != nil {
			return wrapErr(ErrSchema, err)
		}
		return nil
	})
}

// DropCollection 删除租户的整个集合，并清掉该租户在台账里的全部记录，
// 之后再加入的同名文件会被当作新文件处理。两步在同一事务内完成。
func (s *Store) DropCollection(ctx context.Context, tenantID string) error {
	table, err := s.tableName(tenantID)
	if err != nil {
		return err
	}
	log.Infof("[VectorStore] 删除集合 %s", table)
	return s.withTx(ctx, ErrWrite, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return wrapErr(ErrWrite, err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM "+ledgerTable+" WHERE tenant_id = $1", tenantID); err != nil {
			return wrapErr(ErrWrite, err)
		}
		return nil
	})
}

// collectionExists 检查片段表是否已经存在。
func (s *Store) collectionExists(ctx context.Context, table string) (bool, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := conn.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists); err != nil {
		return false, wrapErr(ErrConnection, err)
	}
	return exists, nil
}

// collectionDimension 读取集合建表时声明的向量维度。
// pgvector 把维度记录在 embedding 列的 atttypmod 里。
func (s *Store) collectionDimension(ctx context.Context, table string) (int, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	var dim int
	err = conn.QueryRow(ctx,
		"SELECT a.atttypmod FROM pg_attribute a WHERE a.attrelid = $1::regclass AND a.attname = 'embedding'",
		table).Scan(&dim)
	if err != nil {
		return 0, wrapErr(ErrSchema, err)
	}
	return dim, nil
}

// indexSQL 生成近邻索引的建索引语句，索引类型来自构造参数。
// 索引名截短以避开 PostgreSQL 63 字符标识符上限导致的静默截断。
func (s *Store) indexSQL(table string) string {
	name := table
	if len(name) > 48 {
		name = name[:48]
	}
	switch s.cfg.IndexKind {
	case IndexIVFFlat:
		return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_emb_idx ON %s USING ivfflat (embedding vector_l2_ops) WITH (lists = 100)", name, table)
	default:
		return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_emb_idx ON %s USING hnsw (embedding vector_l2_ops)", name, table)
	}
}
