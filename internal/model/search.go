package model

// SearchResponseDTO 定义了返回给前端的检索结果结构。
type SearchResponseDTO struct {
	FragmentID string         `json:"fragmentId"`
	DocumentID string         `json:"documentId"`
	FileName   string         `json:"fileName"`
	Text       string         `json:"text"`
	Score      float64        `json:"score"`    // 1 - 欧氏距离，仅作排序信号
	Distance   float64        `json:"distance"` // 原始欧氏距离
	Metadata   map[string]any `json:"metadata"`
}
