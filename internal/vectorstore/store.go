// Package vectorstore 实现按租户（课程）划分的 pgvector 向量库：
// 动态建表与索引、片段批量覆盖写、近邻检索，以及用于增量索引的变更台账。
//
// 并发契约：一个 Store 实例独占一条数据库连接，方法之间按调用顺序串行执行，
// 不支持多个 goroutine 并发调用同一实例；需要并发时请为每个调用方创建
// 独立实例，或在外层自行加锁。
package vectorstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"course-rag-go/pkg/log"
)

// 近邻索引类型，作为构造参数而不是分叉实现。
const (
	IndexHNSW    = "hnsw"
	IndexIVFFlat = "ivfflat"
)

const (
	defaultTablePrefix = "kb_course_"
	defaultMaxTopK     = 20
)

// ledgerTable 是全库共享的变更台账表，独立于各租户的片段表。
const ledgerTable = "kb_tracked_files"

const createLedgerTableSQL = `CREATE TABLE IF NOT EXISTS ` + ledgerTable + ` (
	tenant_id          TEXT NOT NULL,
	file_id            TEXT NOT NULL,
	source_modified_at TIMESTAMPTZ NOT NULL,
	processed_at       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (tenant_id, file_id)
)`

// Config 是 Store 的显式配置，由入口点构造后传入，不依赖任何全局状态。
type Config struct {
	// DSN 是 PostgreSQL 连接串，缺失时首个操作返回 ErrConnection。
	DSN string
	// TablePrefix 拼在归一化租户名之前构成表名，默认 kb_course_。
	TablePrefix string
	// IndexKind 选择近邻索引类型：IndexHNSW（默认）或 IndexIVFFlat。
	IndexKind string
	// MaxTopK 是检索条数的上限，请求更大的值会被收敛到该值，默认 20。
	MaxTopK int
}

// Store 持有一条惰性建立的数据库连接，并在其上执行所有向量库操作。
type Store struct {
	cfg  Config
	conn *pgx.Conn
}

// New 根据配置创建一个 Store。连接在首次使用时才建立。
func New(cfg Config) (*Store, error) {
	if cfg.TablePrefix == "" {
		cfg.TablePrefix = defaultTablePrefix
	}
	if err := validateTablePrefix(cfg.TablePrefix); err != nil {
		return nil, err
	}
	switch cfg.IndexKind {
	case "":
		cfg.IndexKind = IndexHNSW
	case IndexHNSW, IndexIVFFlat:
	default:
		return nil, wrapErrf(ErrSchema, "不支持的索引类型: %q", cfg.IndexKind)
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = defaultMaxTopK
	}
	return &Store{cfg: cfg}, nil
}

// validateTablePrefix 确保表名前缀只含允许字符且不以数字开头。
// 前缀来自配置而非用户输入，这里仍按归一化器的允许集做一次校验。
func validateTablePrefix(prefix string) error {
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			continue
		}
		return wrapErrf(ErrInvalidIdentifier, "表名前缀含非法字符: %q", prefix)
	}
	if prefix[0] >= '0' && prefix[0] <= '9' {
		return wrapErrf(ErrInvalidIdentifier, "表名前缀不能以数字开头: %q", prefix)
	}
	return nil
}

// tableName 把租户标识解析为该租户片段表的完整表名。
// 表名是唯一拼接进 SQL 的标识符，且只会来自归一化器的输出；所有值一律走参数绑定。
func (s *Store) tableName(tenantID string) (string, error) {
	safe, err := NormalizeIdentifier(tenantID)
	if err != nil {
		return "", err
	}
	return s.cfg.TablePrefix + safe, nil
}

// acquire 返回一条可用连接：先探活，连接已断开时透明重建一次。
func (s *Store) acquire(ctx context.Context) (*pgx.Conn, error) {
	if s.conn != nil && !s.conn.IsClosed() {
		if err := s.conn.Ping(ctx); err == nil {
			return s.conn, nil
		}
		log.Warnf("[VectorStore] 连接探活失败，重新建立连接")
		_ = s.conn.Close(ctx)
		s.conn = nil
	}
	return s.connect(ctx)
}

// connect 建立新连接。每条新连接上幂等地执行一次副作用：
// 启用 vector 扩展、注册 pgvector 类型、确保台账表存在。
func (s *Store) connect(ctx context.Context) (*pgx.Conn, error) {
	if s.cfg.DSN == "" {
		return nil, wrapErrf(ErrConnection, "未配置数据库 DSN")
	}
	conn, err := pgx.Connect(ctx, s.cfg.DSN)
	if err != nil {
		return nil, wrapErr(ErrConnection, err)
	}
	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		_ = conn.Close(ctx)
		return nil, wrapErr(ErrConnection, err)
	}
	if err := pgxvector.RegisterTypes(ctx, conn); err != nil {
		_ = conn.Close(ctx)
		return nil, wrapErr(ErrConnection, err)
	}
	if _, err := conn.Exec(ctx, createLedgerTableSQL); err != nil {
		_ = conn.Close(ctx)
		return nil, wrapErr(ErrConnection, err)
	}
	s.conn = conn
	return conn, nil
}

// withTx 在一个事务里执行 fn：fn 返回错误或提交失败都会回滚，
// 保证单次逻辑调用的所有语句要么全部生效要么全部丢弃。
// fn 返回的错误应当已包装好对应的错误种类，这里原样透传。
func (s *Store) withTx(ctx context.Context, kind error, fn func(tx pgx.Tx) error) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		return wrapErr(kind, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapErr(kind, err)
	}
	return nil
}

// Close 关闭底层连接。之后再调用任何方法会重新建立连接。
func (s *Store) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close(ctx)
	s.conn = nil
	return err
}
