package knowledge

import (
	"strings"
	"unicode"
)

// Chunker 文本分块器。按固定窗口大小切分，相邻块之间保留overlap个
// 字符的重叠。切分点优先落在语义边界上：段落 > 句子 > 空白 > 硬切。
// 相同输入和参数产生相同的块序列。
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker 创建分块器
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
	}
}

// ChunkSize 返回配置的块大小
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// ChunkOverlap 返回配置的重叠大小
func (c *Chunker) ChunkOverlap() int { return c.chunkOverlap }

// Split 将文本切分为多个chunk。块i+1从块i结束位置前overlap个
// 字符处开始，因此块i的后缀与块i+1的前缀完全一致。
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []Chunk

	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.cutPoint(runes, start, end)
		}

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
		})

		if end == len(runes) {
			break
		}
		start = end - c.chunkOverlap
	}

	return chunks
}

// ChunkDocument 切分文档并继承其元数据
func (c *Chunker) ChunkDocument(doc Document) []Chunk {
	chunks := c.Split(NormalizeText(doc.Content))
	for i := range chunks {
		chunks[i].Metadata = doc.Metadata
	}
	return chunks
}

// cutPoint 在(lo, end]范围内寻找最软的切分点。
// 找不到任何边界时硬切在end。
func (c *Chunker) cutPoint(runes []rune, start, end int) int {
	lo := start + c.chunkSize/2
	if lo <= start+c.chunkOverlap {
		// 保证下一块的起点在本块起点之后
		lo = start + c.chunkOverlap + 1
	}
	if lo >= end {
		return end
	}

	// 段落边界
	for p := end; p > lo; p-- {
		if runes[p-1] == '\n' && p >= 2 && runes[p-2] == '\n' {
			return p
		}
	}
	// 句子边界
	for p := end; p > lo; p-- {
		if isSentenceEnd(runes[p-1]) {
			return p
		}
	}
	// 空白边界
	for p := end; p > lo; p-- {
		if unicode.IsSpace(runes[p-1]) {
			return p
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '；', ';':
		return true
	}
	return false
}

// NormalizeText 清理文本：压缩连续空白为单个空格，保留段落分隔
// （连续两个及以上换行压缩为一个空行），去除首尾空白。
func NormalizeText(s string) string {
	var builder strings.Builder
	builder.Grow(len(s))

	newlines := 0
	pendingSpace := false
	for _, r := range s {
		switch {
		case r == '\n':
			newlines++
			pendingSpace = false
		case unicode.IsSpace(r):
			pendingSpace = true
		default:
			if newlines > 0 {
				if builder.Len() > 0 {
					if newlines >= 2 {
						builder.WriteString("\n\n")
					} else {
						builder.WriteByte('\n')
					}
				}
				newlines = 0
			} else if pendingSpace && builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			pendingSpace = false
			builder.WriteRune(r)
		}
	}

	return builder.String()
}
