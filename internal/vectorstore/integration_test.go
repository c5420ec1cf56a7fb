package vectorstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 集成测试需要一个装有 pgvector 扩展的 PostgreSQL 实例，
// 通过 COURSE_RAG_TEST_DSN 环境变量传入连接串，未设置时整体跳过。
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("COURSE_RAG_TEST_DSN")
	if dsn == "" {
		t.Skip("COURSE_RAG_TEST_DSN 未设置，跳过集成测试")
	}
	s, err := New(Config{DSN: dsn, TablePrefix: "kb_it_"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

// newTestTenant 为每个测试生成独立租户并在结束时清理集合与台账。
func newTestTenant(t *testing.T, s *Store) string {
	t.Helper()
	tenant := fmt.Sprintf("it %s %d", t.Name(), time.Now().UnixNano())
	t.Cleanup(func() { _ = s.DropCollection(context.Background(), tenant) })
	return tenant
}

func TestIntegrationRoundTrip(t *testing.T) {
	s := newTestStore(t)
	tenant := newTestTenant(t, s)
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx, tenant, 4))

	frags := []Fragment{
		{ID: "f1", DocumentID: "doc1", Text: "第一段", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]any{"fileName": "a.pdf"}},
		{ID: "f2", DocumentID: "doc1", Text: "第二段", Embedding: []float32{0, 1, 0, 0}},
		{ID: "f3", DocumentID: "doc2", Text: "第三段", Embedding: []float32{0, 0, 1, 0}},
	}
	require.NoError(t, s.UpsertFragments(ctx, tenant, frags))

	got, err := s.Search(ctx, tenant, []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// 与查询向量完全一致的片段排第一，距离为 0，分数为 1。
	assert.Equal(t, "f1", got[0].FragmentID)
	assert.Equal(t, "doc1", got[0].DocumentID)
	assert.Equal(t, "第一段", got[0].Text)
	assert.InDelta(t, 0.0, got[0].Distance, 1e-6)
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
	assert.Equal(t, "a.pdf", got[0].Metadata["fileName"])

	// 其余结果按距离升序排列。
	assert.LessOrEqual(t, got[0].Distance, got[1].Distance)
	assert.LessOrEqual(t, got[1].Distance, got[2].Distance)
}

func TestIntegrationUpsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	tenant := newTestTenant(t, s)
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx, tenant, 4))

	first := []Fragment{{ID: "f1", DocumentID: "doc1", Text: "旧文本", Embedding: []float32{1, 0, 0, 0}}}
	require.NoError(t, s.UpsertFragments(ctx, tenant, first))

	// 同一 ID 再次写入应整行覆盖，而不是新增一行。
	second := []Fragment{{ID: "f1", DocumentID: "doc1", Text: "新文本", Embedding: []float32{0, 1, 0, 0}}}
	require.NoError(t, s.UpsertFragments(ctx, tenant, second))

	got, err := s.Search(ctx, tenant, []float32{0, 1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "新文本", got[0].Text)
	assert.InDelta(t, 0.0, got[0].Distance, 1e-6)
}

func TestIntegrationSkipsNilEmbedding(t *testing.T) {
	s := newTestStore(t)
	tenant := newTestTenant(t, s)
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx, tenant, 4))
	frags := []Fragment{
		{ID: "f1", DocumentID: "doc1", Text: "有向量", Embedding: []float32{1, 0, 0, 0}},
		{ID: "f2", DocumentID: "doc1", Text: "无向量", Embedding: nil},
	}
	require.NoError(t, s.UpsertFragments(ctx, tenant, frags))

	got, err := s.Search(ctx, tenant, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f1", got[0].FragmentID)
}

func TestIntegrationDeleteByDocument(t *testing.T) {
	s := newTestStore(t)
	tenant := newTestTenant(t, s)
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx, tenant, 4))
	frags := []Fragment{
		{ID: "f1", DocumentID: "doc1", Text: "a", Embedding: []float32{1, 0, 0, 0}},
		{ID: "f2", DocumentID: "doc1", Text: "b", Embedding: []float32{0, 1, 0, 0}},
		{ID: "f3", DocumentID: "doc2", Text: "c", Embedding: []float32{0, 0, 1, 0}},
	}
	require.NoError(t, s.UpsertFragments(ctx, tenant, frags))

	require.NoError(t, s.DeleteFragmentsByDocument(ctx, tenant, "doc1"))

	got, err := s.Search(ctx, tenant, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "doc2", got[0].DocumentID)

	// 删除不存在的文档是幂等的无操作。
	require.NoError(t, s.DeleteFragmentsByDocument(ctx, tenant, "doc1"))
}

func TestIntegrationSearchMissingCollection(t *testing.T) {
	s := newTestStore(t)
	tenant := newTestTenant(t, s)
	ctx := context.Background()

	// 从未建过集合的租户检索应返回空结果而不是报错。
	got, err := s.Search(ctx, tenant, []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIntegrationDimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	tenant := newTestTenant(t, s)
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx, tenant, 4))
	require.NoError(t, s.UpsertFragments(ctx, tenant, []Fragment{
		{ID: "f1", DocumentID: "doc1", Text: "a", Embedding: []float32{1, 0, 0, 0}},
	}))

	// 维度不符的批次整体拒绝，已有数据保持不变。
	err := s.UpsertFragments(ctx, tenant, []Fragment{
		{ID: "f2", DocumentID: "doc1", Text: "b", Embedding: []float32{1, 0}},
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	got, err := s.Search(ctx, tenant, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f1", got[0].FragmentID)
}

func TestIntegrationEnsureCollectionFirstDimensionWins(t *testing.T) {
	s := newTestStore(t)
	tenant := newTestTenant(t, s)
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx, tenant, 4))
	// 已存在的集合保持原维度，再次调用不会重建。
	require.NoError(t, s.EnsureCollection(ctx, tenant, 8))

	table, err := s.tableName(tenant)
	require.NoError(t, err)
	dim, err := s.collectionDimension(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, 4, dim)
}

func TestIntegrationLedger(t *testing.T) {
	s := newTestStore(t)
	tenant := newTestTenant(t, s)
	ctx := context.Background()

	fileID := "file-1"
	at100 := time.Unix(100, 0).UTC()
	at101 := time.Unix(101, 0).UTC()

	// 从未见过的文件视为需要处理。
	assert.True(t, s.IsNewOrModified(ctx, tenant, fileID, at100))

	require.NoError(t, s.MarkProcessed(ctx, tenant, fileID, at100))
	assert.False(t, s.IsNewOrModified(ctx, tenant, fileID, at100))
	assert.True(t, s.IsNewOrModified(ctx, tenant, fileID, at101))

	// 记录更新后以新的源修改时间为准。
	require.NoError(t, s.MarkProcessed(ctx, tenant, fileID, at101))
	assert.False(t, s.IsNewOrModified(ctx, tenant, fileID, at101))

	require.NoError(t, s.DeleteRecord(ctx, tenant, fileID))
	assert.True(t, s.IsNewOrModified(ctx, tenant, fileID, at100))

	// 删除不存在的记录同样成功。
	require.NoError(t, s.DeleteRecord(ctx, tenant, "no-such-file"))
}

func TestIntegrationDropCollection(t *testing.T) {
	s := newTestStore(t)
	tenant := newTestTenant(t, s)
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx, tenant, 4))
	require.NoError(t, s.UpsertFragments(ctx, tenant, []Fragment{
		{ID: "f1", DocumentID: "doc1", Text: "a", Embedding: []float32{1, 0, 0, 0}},
	}))
	require.NoError(t, s.MarkProcessed(ctx, tenant, "file-1", time.Now().UTC()))

	require.NoError(t, s.DropCollection(ctx, tenant))

	// 集合与台账一并清除。
	got, err := s.Search(ctx, tenant, []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, s.IsNewOrModified(ctx, tenant, "file-1", time.Unix(0, 0)))

	// 再次删除不存在的集合也应成功。
	require.NoError(t, s.DropCollection(ctx, tenant))
}
