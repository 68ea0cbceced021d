package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunker_InvalidParams(t *testing.T) {
	// 非法参数回落到安全默认值
	c := NewChunker(0, -1)
	assert.Equal(t, 512, c.ChunkSize())
	assert.Equal(t, 0, c.ChunkOverlap())

	// overlap不小于chunkSize时压缩为chunkSize/4
	c = NewChunker(100, 100)
	assert.Equal(t, 100, c.ChunkSize())
	assert.Equal(t, 25, c.ChunkOverlap())
}

func TestChunker_EmptyInput(t *testing.T) {
	c := NewChunker(100, 10)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\t  "))
}

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker(100, 10)
	chunks := c.Split("hello world")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "hello world", chunks[0].Text)
}

func TestChunker_Deterministic(t *testing.T) {
	c := NewChunker(50, 10)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)

	first := c.Split(text)
	second := c.Split(text)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, i, first[i].Index)
	}
}

func TestChunker_OverlapInvariant(t *testing.T) {
	c := NewChunker(64, 16)
	text := strings.Repeat("Paragraph one has several sentences. Each one ends cleanly. ", 15)

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	// 块i的后缀与块i+1的前缀在overlap长度上完全一致
	overlap := c.ChunkOverlap()
	for i := 0; i < len(chunks)-1; i++ {
		cur := []rune(chunks[i].Text)
		next := []rune(chunks[i+1].Text)
		require.GreaterOrEqual(t, len(cur), overlap)
		require.Greater(t, len(next), overlap)
		assert.Equal(t, string(cur[len(cur)-overlap:]), string(next[:overlap]),
			"chunk %d/%d overlap mismatch", i, i+1)
	}
}

func TestChunker_ChunkSizeBound(t *testing.T) {
	c := NewChunker(80, 20)
	text := strings.Repeat("abcdefghij ", 100)
	for _, chunk := range c.Split(text) {
		assert.LessOrEqual(t, len([]rune(chunk.Text)), 80)
	}
}

func TestChunker_PrefersParagraphBoundary(t *testing.T) {
	c := NewChunker(60, 10)
	// 段落分隔位于窗口后半段，应优先在此切分
	text := "First paragraph with some content here ok.\n\nSecond paragraph continues with more text after the break point."
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0].Text, "\n\n"),
		"expected cut at paragraph boundary, got %q", chunks[0].Text)
}

func TestChunker_PrefersSentenceBoundary(t *testing.T) {
	c := NewChunker(60, 10)
	text := "This is the first sentence of the text. This is the second sentence which keeps going for a while longer."
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	trimmed := strings.TrimRight(chunks[0].Text, " ")
	assert.True(t, strings.HasSuffix(trimmed, "."),
		"expected cut at sentence boundary, got %q", chunks[0].Text)
}

func TestChunker_ProgressGuarantee(t *testing.T) {
	// 无任何边界的长文本也必须前进并终止
	c := NewChunker(32, 8)
	text := strings.Repeat("x", 500)
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	// 拼接去重后应还原原文
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0].Text)
	for i := 1; i < len(chunks); i++ {
		runes := []rune(chunks[i].Text)
		rebuilt.WriteString(string(runes[c.ChunkOverlap():]))
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestChunker_ChunkDocumentInheritsMetadata(t *testing.T) {
	c := NewChunker(40, 8)
	doc := Document{
		Content: strings.Repeat("Some meaningful sentence here. ", 10),
		Metadata: Metadata{
			Source:   "upload",
			Filename: "notes.txt",
			FileType: ".txt",
		},
	}
	chunks := c.ChunkDocument(doc)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.Equal(t, "notes.txt", chunk.Metadata.Filename)
		assert.Equal(t, ".txt", chunk.Metadata.FileType)
	}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "", NormalizeText("   \n  "))
	assert.Equal(t, "a b", NormalizeText("a    \t b"))
	assert.Equal(t, "a\nb", NormalizeText("a\nb"))
	// 多个空行压缩为一个段落分隔
	assert.Equal(t, "a\n\nb", NormalizeText("a\n\n\n\nb"))
	assert.Equal(t, "hello", NormalizeText("  hello  "))
}
