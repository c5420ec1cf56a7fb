// Package pipeline 定义了课程文件增量索引的核心流程。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"course-rag-go/internal/config"
	"course-rag-go/internal/model"
	"course-rag-go/internal/repository"
	"course-rag-go/internal/vectorstore"
	"course-rag-go/pkg/embedding"
	"course-rag-go/pkg/log"
	"course-rag-go/pkg/storage"
	"course-rag-go/pkg/tasks"
)

// FragmentStore 抽象了流水线需要的向量库能力，由 *vectorstore.Store 实现。
type FragmentStore interface {
	EnsureCollection(ctx context.Context, tenantID string, dim int) error
	UpsertFragments(ctx context.Context, tenantID string, frags []vectorstore.Fragment) error
	DeleteFragmentsByDocument(ctx context.Context, tenantID, documentID string) error
	IsNewOrModified(ctx context.Context, tenantID, fileID string, sourceModified time.Time) bool
	MarkProcessed(ctx context.Context, tenantID, fileID string, sourceModified time.Time) error
}

// TextExtractor 抽象了文本抽取能力，由 *tika.Client 实现。
type TextExtractor interface {
	ExtractText(ctx context.Context, fileReader io.Reader, fileName string) (string, error)
}

// FileDownloader 抽象了课程平台的文件下载能力，由 *lms.Client 实现。
type FileDownloader interface {
	DownloadFile(ctx context.Context, downloadURL string) (io.ReadCloser, error)
}

// ObjectCache 抽象了原始文件字节的对象缓存。
type ObjectCache interface {
	Get(ctx context.Context, objectName string) ([]byte, error)
	Put(ctx context.Context, objectName string, data []byte) error
	Remove(ctx context.Context, objectName string) error
}

// MinioCache 是 ObjectCache 的 MinIO 实现。
type MinioCache struct {
	Bucket string
}

func (c *MinioCache) Get(ctx context.Context, objectName string) ([]byte, error) {
	return storage.GetObjectBytes(ctx, c.Bucket, objectName)
}

func (c *MinioCache) Put(ctx context.Context, objectName string, data []byte) error {
	return storage.PutObject(ctx, c.Bucket, objectName, data)
}

func (c *MinioCache) Remove(ctx context.Context, objectName string) error {
	return storage.RemoveObject(ctx, c.Bucket, objectName)
}

// CacheObjectName 是课程文件原始字节在对象缓存里的键。
func CacheObjectName(courseID, fileID string) string {
	return fmt.Sprintf("courses/%s/%s", courseID, fileID)
}

// Processor 封装了文件索引的所有依赖和逻辑。
type Processor struct {
	extractor       TextExtractor
	embeddingClient embedding.Client
	downloader      FileDownloader
	cache           ObjectCache
	store           FragmentStore
	fileRepo        repository.CourseFileRepository
	embeddingCfg    config.EmbeddingConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	extractor TextExtractor,
	embeddingClient embedding.Client,
	downloader FileDownloader,
	cache ObjectCache,
	store FragmentStore,
	fileRepo repository.CourseFileRepository,
	embeddingCfg config.EmbeddingConfig,
) *Processor {
	return &Processor{
		extractor:       extractor,
		embeddingClient: embeddingClient,
		downloader:      downloader,
		cache:           cache,
		store:           store,
		fileRepo:        fileRepo,
		embeddingCfg:    embeddingCfg,
	}
}

// Process 是课程文件索引的主函数。
// 先查台账决定是否需要处理，需要时走 下载→抽取→分块→向量化→写库 的全流程，
// 成功后更新台账，保证下次同一文件未变更时直接跳过。
func (p *Processor) Process(ctx context.Context, task tasks.CourseIndexTask) error {
	log.Infof("[Processor] 开始处理课程文件, course: %s, file: %s, name: %s", task.CourseID, task.FileID, task.FileName)
	defer func() {
		_ = p.fileRepo.ClearEnqueued(ctx, task.CourseID, task.FileID)
	}()

	// 1. 变更检测：源端未变更的文件不重复抽取、不重复向量化
	if !p.store.IsNewOrModified(ctx, task.CourseID, task.FileID, task.SourceModifiedAt) {
		log.Infof("[Processor] 文件未变更, 跳过处理, course: %s, file: %s", task.CourseID, task.FileID)
		_ = p.fileRepo.UpdateStatus(task.CourseID, task.FileID, model.FileStatusSkipped)
		return nil
	}

	// 2. 取原始字节：优先走对象缓存，缓存未命中时回源下载并写入缓存
	raw, err := p.fetchBytes(ctx, task)
	if err != nil {
		p.markFailed(ctx, task)
		return err
	}
	if len(raw) == 0 {
		log.Warnf("[Processor] 文件 '%s' 内容为空, 处理中止", task.FileName)
		p.markFailed(ctx, task)
		return errors.New("文件内容为空")
	}
	log.Infof("[Processor] 文件字节就绪, 大小: %d 字节", len(raw))

	// 3. 使用 Tika 提取文本
	textContent, err := p.extractor.ExtractText(ctx, bytes.NewReader(raw), task.FileName)
	if err != nil {
		log.Errorf("[Processor] 使用 Tika 提取文本失败, file: %s, error: %v", task.FileName, err)
		p.markFailed(ctx, task)
		return fmt.Errorf("使用 Tika 提取文本失败: %w", err)
	}
	if textContent == "" {
		log.Warnf("[Processor] Tika 提取的文本内容为空, 处理中止, file: %s", task.FileName)
		p.markFailed(ctx, task)
		return errors.New("提取的文本内容为空")
	}
	log.Infof("[Processor] 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(textContent))

	// 4. 文本切块
	chunks := splitText(textContent, defaultChunkSize, defaultChunkOverlap)
	log.Infof("[Processor] 文本分块完成, 共生成 %d 个分块", len(chunks))
	if len(chunks) == 0 {
		p.markFailed(ctx, task)
		return errors.New("未生成任何文本分块")
	}

	// 5. 逐块向量化，组装片段
	fragments := make([]vectorstore.Fragment, 0, len(chunks))
	for i, chunk := range chunks {
		vector, err := p.embeddingClient.CreateEmbedding(ctx, chunk)
		if err != nil {
			log.Errorf("[Processor] 分块 %d 向量化失败, error: %v", i, err)
			p.markFailed(ctx, task)
			return fmt.Errorf("块 %d 向量化失败: %w", i, err)
		}
		fragments = append(fragments, vectorstore.Fragment{
			ID:         fmt.Sprintf("%s_%d", task.FileID, i),
			DocumentID: task.FileID,
			Text:       chunk,
			Embedding:  vector,
			Metadata: map[string]any{
				"course_id":     task.CourseID,
				"file_name":     task.FileName,
				"chunk_index":   i,
				"model_version": p.embeddingCfg.Model,
			},
		})
	}

	// 6. 确保集合存在：维度只有在拿到第一个向量之后才知道
	dim := len(fragments[0].Embedding)
	if err := p.store.EnsureCollection(ctx, task.CourseID, dim); err != nil {
		log.Errorf("[Processor] 确保集合存在失败, course: %s, error: %v", task.CourseID, err)
		p.markFailed(ctx, task)
		return fmt.Errorf("确保集合存在失败: %w", err)
	}

	// 7. 先清理该文档既有的片段，再整批写入（重建索引幂等）
	if err := p.store.DeleteFragmentsByDocument(ctx, task.CourseID, task.FileID); err != nil {
		log.Warnf("[Processor] 清理旧片段失败, course: %s, file: %s, error: %v", task.CourseID, task.FileID, err)
	}
	if err := p.store.UpsertFragments(ctx, task.CourseID, fragments); err != nil {
		log.Errorf("[Processor] 批量写入片段失败, course: %s, file: %s, error: %v", task.CourseID, task.FileID, err)
		p.markFailed(ctx, task)
		return fmt.Errorf("批量写入片段失败: %w", err)
	}

	// 8. 更新变更台账与元数据状态
	if err := p.store.MarkProcessed(ctx, task.CourseID, task.FileID, task.SourceModifiedAt); err != nil {
		// 片段已落库，台账写失败只会导致下次多处理一遍，记日志即可
		log.Warnf("[Processor] 更新台账失败, course: %s, file: %s, error: %v", task.CourseID, task.FileID, err)
	}
	if err := p.fileRepo.MarkIndexed(task.CourseID, task.FileID); err != nil {
		log.Warnf("[Processor] 更新文件状态失败, course: %s, file: %s, error: %v", task.CourseID, task.FileID, err)
	}

	log.Infof("[Processor] 课程文件处理成功, course: %s, file: %s, 共 %d 个片段", task.CourseID, task.FileID, len(fragments))
	return nil
}

// fetchBytes 取文件原始字节：缓存命中直接返回，否则回源下载并写缓存。
func (p *Processor) fetchBytes(ctx context.Context, task tasks.CourseIndexTask) ([]byte, error) {
	objectName := CacheObjectName(task.CourseID, task.FileID)

	cached, err := p.cache.Get(ctx, objectName)
	if err != nil {
		log.Warnf("[Processor] 读取对象缓存失败, object: %s, error: %v", objectName, err)
	}
	if len(cached) > 0 {
		log.Infof("[Processor] 对象缓存命中, object: %s", objectName)
		return cached, nil
	}

	body, err := p.downloader.DownloadFile(ctx, task.DownloadURL)
	if err != nil {
		log.Errorf("[Processor] 下载课程文件失败, url: %s, error: %v", task.DownloadURL, err)
		return nil, fmt.Errorf("下载课程文件失败: %w", err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("读取课程文件失败: %w", err)
	}

	if err := p.cache.Put(ctx, objectName, raw); err != nil {
		// 缓存写失败不阻断流程，下次重试时再回源
		log.Warnf("[Processor] 写入对象缓存失败, object: %s, error: %v", objectName, err)
	}
	return raw, nil
}

// markFailed 把文件状态置为失败，状态写失败只记日志。
func (p *Processor) markFailed(ctx context.Context, task tasks.CourseIndexTask) {
	if err := p.fileRepo.UpdateStatus(task.CourseID, task.FileID, model.FileStatusFailed); err != nil {
		log.Warnf("[Processor] 更新失败状态出错, course: %s, file: %s, error: %v", task.CourseID, task.FileID, err)
	}
}
