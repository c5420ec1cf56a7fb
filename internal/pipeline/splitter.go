package pipeline

// 分块参数与原始实现保持一致：窗口 1000 字符，重叠 100 字符。
const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 100
)

// splitText 将长文本按指定大小和重叠进行切分。
// 以 rune 为单位滑窗，避免把多字节字符切坏。
func splitText(text string, chunkSize int, chunkOverlap int) []string {
	if chunkSize <= chunkOverlap {
		// Fallback to simple split if overlap is invalid
		return simpleSplit(text, chunkSize)
	}

	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := chunkSize - chunkOverlap
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func simpleSplit(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		return nil
	}
	var chunks []string
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
