package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aihub/ragbot-go/internal/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder 基于词袋的确定性嵌入器：共享单词越多的文本向量越接近
type hashEmbedder struct {
	dims int
}

func (h *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		sum := 0
		for _, r := range word {
			sum += int(r)
		}
		vec[sum%h.dims] += 1
	}
	return vec, nil
}

func (h *hashEmbedder) Dimensions() int { return h.dims }
func (h *hashEmbedder) Ready() bool     { return true }

// fakeGenerator 记录调用次数并回显上下文中出现的关键词
type fakeGenerator struct {
	calls  int
	answer string
	err    error
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if g.answer != "" {
		return g.answer, nil
	}
	if strings.Contains(prompt, "Paris") {
		return "The capital of France is Paris.", nil
	}
	return "I don't have enough information.", nil
}

func (g *fakeGenerator) Ready() bool { return true }

// memoryCache 进程内的问答缓存，用键归一化规则与真实实现保持一致
type memoryCache struct {
	entries map[string]*QueryResult
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*QueryResult{}}
}

func (m *memoryCache) GetQueryResponse(ctx context.Context, question string) (*QueryResult, bool) {
	result, ok := m.entries[QueryKey(question)]
	return result, ok
}

func (m *memoryCache) SetQueryResponse(ctx context.Context, question string, result *QueryResult) bool {
	m.sets++
	m.entries[QueryKey(question)] = result
	return true
}

func newTestRAGService(t *testing.T, generator knowledge.Generator, cache ResponseCache) *RAGService {
	t.Helper()
	embedder := &hashEmbedder{dims: 16}
	index := knowledge.NewVectorIndex(t.TempDir(), embedder, 128, 16)
	return NewRAGService(index, knowledge.NewDocumentLoader(), knowledge.NewChunker(128, 16),
		generator, cache, nil, 5)
}

func TestRAGService_QueryEmptyQuestion(t *testing.T) {
	svc := newTestRAGService(t, &fakeGenerator{}, newMemoryCache())
	result := svc.Query(context.Background(), "   ", 5, false)
	require.NotNil(t, result)
	assert.Equal(t, "Please provide a question.", result.Answer)
	assert.False(t, result.Error)
}

func TestRAGService_QueryEmptyIndex(t *testing.T) {
	cache := newMemoryCache()
	gen := &fakeGenerator{}
	svc := newTestRAGService(t, gen, cache)

	result := svc.Query(context.Background(), "what is the capital of France?", 5, false)
	require.NotNil(t, result)
	assert.Contains(t, result.Answer, "don't have enough information")
	assert.False(t, result.Error)
	// 空索引回答不调用生成器也不写缓存
	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, 0, cache.sets)

	// 文档补充后同样的问题触发新的检索，而不是返回旧回答
	require.True(t, svc.IngestText(context.Background(), "The capital of France is Paris.", nil))
	fresh := svc.Query(context.Background(), "what is the capital of France?", 5, false)
	assert.Contains(t, fresh.Answer, "Paris")
	assert.Equal(t, 1, gen.calls)
}

func TestRAGService_IngestAndQuery(t *testing.T) {
	cache := newMemoryCache()
	gen := &fakeGenerator{}
	svc := newTestRAGService(t, gen, cache)

	ok := svc.IngestText(context.Background(), "The capital of France is Paris.", nil)
	require.True(t, ok)
	assert.Equal(t, 1, svc.GetIndexStats().TotalChunks)

	result := svc.Query(context.Background(), "What is the capital of France?", 5, true)
	require.NotNil(t, result)
	assert.False(t, result.Error)
	assert.Contains(t, result.Answer, "Paris")
	assert.Equal(t, 1, result.NumSources)
	require.Len(t, result.Sources, 1)
	assert.Contains(t, result.Sources[0].Content, "Paris")
	assert.Greater(t, result.Sources[0].Similarity, 0.0)
}

func TestRAGService_CacheShortCircuit(t *testing.T) {
	cache := newMemoryCache()
	gen := &fakeGenerator{}
	svc := newTestRAGService(t, gen, cache)

	require.True(t, svc.IngestText(context.Background(), "The capital of France is Paris.", nil))

	first := svc.Query(context.Background(), "What is the capital of France?", 5, false)
	require.False(t, first.Error)
	assert.Equal(t, 1, gen.calls)

	// 第二次相同问题命中缓存，不再调用生成器
	second := svc.Query(context.Background(), "What is the capital of France?", 5, false)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, first.Answer, second.Answer)

	// 键归一化：大小写和空白不同的问法同样命中
	third := svc.Query(context.Background(), "  WHAT IS THE CAPITAL OF FRANCE?  ", 5, false)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, first.Answer, third.Answer)
}

func TestRAGService_GeneratorErrorReturnsStructuredResult(t *testing.T) {
	cache := newMemoryCache()
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	svc := newTestRAGService(t, gen, cache)

	require.True(t, svc.IngestText(context.Background(), "Some indexed content here.", nil))

	result := svc.Query(context.Background(), "anything", 5, false)
	require.NotNil(t, result)
	assert.True(t, result.Error)
	assert.Contains(t, result.Answer, "model unavailable")
	// 错误结果不写缓存
	assert.Equal(t, 0, cache.sets)
}

func TestRAGService_IngestTextEmpty(t *testing.T) {
	svc := newTestRAGService(t, &fakeGenerator{}, newMemoryCache())
	assert.False(t, svc.IngestText(context.Background(), "", nil))
	assert.False(t, svc.IngestText(context.Background(), "   \n ", nil))
	assert.Equal(t, 0, svc.GetIndexStats().TotalChunks)
}

func TestRAGService_SourcePreviewTruncation(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	long := strings.Repeat("word ", 100) // 500字符，单块内
	svc := NewRAGService(
		knowledge.NewVectorIndex(t.TempDir(), &hashEmbedder{dims: 16}, 600, 50),
		knowledge.NewDocumentLoader(), knowledge.NewChunker(600, 50),
		gen, newMemoryCache(), nil, 5)
	require.True(t, svc.IngestText(context.Background(), long, nil))

	result := svc.Query(context.Background(), "word", 5, true)
	require.False(t, result.Error)
	require.NotEmpty(t, result.Sources)
	assert.LessOrEqual(t, len([]rune(result.Sources[0].Content)), 203)
	assert.True(t, strings.HasSuffix(result.Sources[0].Content, "..."))
}

func TestRAGService_ClearIndex(t *testing.T) {
	svc := newTestRAGService(t, &fakeGenerator{}, newMemoryCache())
	require.True(t, svc.IngestText(context.Background(), "The capital of France is Paris.", nil))
	require.True(t, svc.ClearIndex())
	assert.Equal(t, 0, svc.GetIndexStats().TotalChunks)

	result := svc.Query(context.Background(), "What is the capital of France?", 5, false)
	assert.Contains(t, result.Answer, "don't have enough information")
}
