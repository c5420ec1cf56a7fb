package vectorstore

// Fragment 是存储与检索的最小单元：一段抽取文本及其向量与元数据。
type Fragment struct {
	// ID 在集合内全局唯一，作为主键；重复写入同一 ID 时整行覆盖。
	ID string
	// DocumentID 标识该片段来自哪个源文档，同一文档的多个片段共享一个值。
	DocumentID string
	// Text 是片段的原始文本。
	Text string
	// Embedding 为 nil 时表示尚未生成向量，这样的片段不会被持久化。
	Embedding []float32
	// Metadata 是开放的键值元数据（文件名、标题、位置等），以 JSONB 存储。
	Metadata map[string]any
}

// ScoredFragment 是一次相似度检索返回的单条结果。
type ScoredFragment struct {
	FragmentID string         `json:"fragmentId"`
	DocumentID string         `json:"documentId"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata"`
	// Score 为 1 - 欧氏距离。注意这不是余弦相似度：距离大于 1 时
	// 分数会降到 0 以下，只能作为排序信号使用，不是概率。
	Score float64 `json:"score"`
	// Distance 是原始欧氏距离，升序越小越相似。
	Distance float64 `json:"distance"`
}
