package vectorstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"course-rag-go/pkg/log"
)

// IsNewOrModified 判断一个源文件是否需要（重新）处理：
// 台账里没有记录，或者源端修改时间严格晚于上次记录的时间，都返回 true。
// 查询出错时返回 true：宁可重复处理，也不静默漏掉新内容。
func (s *Store) IsNewOrModified(ctx context.Context, tenantID, fileID string, sourceModified time.Time) bool {
	conn, err := s.acquire(ctx)
	if err != nil {
		log.Warnf("[VectorStore] 台账查询连接失败, 按已变更处理, tenant: %s, file: %s, err: %v", tenantID, fileID, err)
		return true
	}

	var stored time.Time
	err = conn.QueryRow(ctx,
		"SELECT source_modified_at FROM "+ledgerTable+" WHERE tenant_id = $1 AND file_id = $2",
		tenantID, fileID).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	if err != nil {
		log.Warnf("[VectorStore] 台账查询失败, 按已变更处理, tenant: %s, file: %s, err: %v", tenantID, fileID, err)
		return true
	}
	return sourceModified.After(stored)
}

// MarkProcessed 在文件处理成功后写台账：记录源端修改时间与当前处理时间。
// 同一 (tenant, file) 的第二次写入是覆盖，不会产生重复行。
func (s *Store) MarkProcessed(ctx context.Context, tenantID, fileID string, sourceModified time.Time) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx,
		`INSERT INTO `+ledgerTable+` (tenant_id, file_id, source_modified_at, processed_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (tenant_id, file_id) DO UPDATE SET
	source_modified_at = EXCLUDED.source_modified_at,
	processed_at       = EXCLUDED.processed_at`,
		tenantID, fileID, sourceModified)
	if err != nil {
		return wrapErr(ErrWrite, err)
	}
	return nil
}

// DeleteRecord 删除一条台账记录，之后再出现的同名文件会被当作新文件。
// 幂等：记录不存在也视为成功。
func (s *Store) DeleteRecord(ctx context.Context, tenantID, fileID string) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx,
		"DELETE FROM "+ledgerTable+" WHERE tenant_id = $1 AND file_id = $2",
		tenantID, fileID)
	if err != nil {
		return wrapErr(ErrWrite, err)
	}
	return nil
}
