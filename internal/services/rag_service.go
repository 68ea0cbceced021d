package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aihub/ragbot-go/internal/knowledge"
	"github.com/aihub/ragbot-go/internal/logger"
	"go.uber.org/zap"
)

// 无检索结果时的固定回答。注意这个回答不会写入缓存：
// 后续文档补充进来之后，同样的问题应当触发新的检索。
const insufficientInfoAnswer = "I don't have enough information to answer this question. Please upload relevant documents first."

// ragPromptTemplate 固定的指令模板：只允许基于给定上下文作答，
// 上下文不足时明确拒绝。
const ragPromptTemplate = `Use the following context to answer the question. If you cannot answer based on the context, say "I don't have enough information."

Context:
%s

Question: %s

Answer:`

// QueryResult 问答结果。查询失败时Answer为人类可读的错误描述，
// Error为true；调用方永远得到结构化结果而不是异常。
type QueryResult struct {
	Answer     string        `json:"answer"`
	NumSources int           `json:"num_sources,omitempty"`
	Sources    []QuerySource `json:"sources,omitempty"`
	Error      bool          `json:"error,omitempty"`
}

// QuerySource 答案引用的来源分块
type QuerySource struct {
	Content    string             `json:"content"`
	Metadata   knowledge.Metadata `json:"metadata"`
	Similarity float64            `json:"similarity_score"`
	Distance   float64            `json:"distance"`
}

// ResponseCache 问答缓存的窄接口，便于测试替换
type ResponseCache interface {
	GetQueryResponse(ctx context.Context, question string) (*QueryResult, bool)
	SetQueryResponse(ctx context.Context, question string, result *QueryResult) bool
}

// RAGService 检索增强问答服务：组合文档加载、分块、向量索引、
// 缓存和答案生成。依赖全部显式注入。
type RAGService struct {
	index     *knowledge.VectorIndex
	loader    *knowledge.DocumentLoader
	chunker   *knowledge.Chunker
	generator knowledge.Generator
	cache     ResponseCache
	metrics   *MetricsService
	topK      int
}

// NewRAGService 创建RAG服务
func NewRAGService(
	index *knowledge.VectorIndex,
	loader *knowledge.DocumentLoader,
	chunker *knowledge.Chunker,
	generator knowledge.Generator,
	cache ResponseCache,
	metrics *MetricsService,
	topK int,
) *RAGService {
	if topK <= 0 {
		topK = 5
	}
	return &RAGService{
		index:     index,
		loader:    loader,
		chunker:   chunker,
		generator: generator,
		cache:     cache,
		metrics:   metrics,
		topK:      topK,
	}
}

// IngestText 摄取纯文本。空文本返回false（无事发生，不是错误）。
func (s *RAGService) IngestText(ctx context.Context, text string, extra map[string]string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	doc := s.loader.LoadText(text, extra)
	chunks := s.chunker.ChunkDocument(doc)
	ok, err := s.index.Add(ctx, chunks)
	if err != nil {
		logger.Error("Failed to ingest text", zap.Error(err))
		s.metrics.RecordIngest(false, 0)
		return false
	}

	s.metrics.RecordIngest(ok, len(chunks))
	if ok {
		logger.Info("Text document ingested", zap.Int("chunks", len(chunks)))
	}
	return ok
}

// IngestFile 摄取文件。不支持的格式和解析失败都返回false，
// 不影响其他文档的摄取。
func (s *RAGService) IngestFile(ctx context.Context, path string, extra map[string]string) bool {
	docs := s.loader.LoadFile(path, extra)
	if len(docs) == 0 {
		return false
	}

	var chunks []knowledge.Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.chunker.ChunkDocument(doc)...)
	}

	ok, err := s.index.Add(ctx, chunks)
	if err != nil {
		logger.Error("Failed to ingest file", zap.String("path", path), zap.Error(err))
		s.metrics.RecordIngest(false, 0)
		return false
	}

	s.metrics.RecordIngest(ok, len(chunks))
	if ok {
		logger.Info("File ingested",
			zap.String("path", path),
			zap.Int("documents", len(docs)),
			zap.Int("chunks", len(chunks)))
	}
	return ok
}

// Query 回答问题。流程：缓存查找 → 向量检索 → 构建提示词 →
// 生成答案 → 写回缓存。任何一步失败都转换为带错误标记的
// 结构化结果，不向调用方抛异常。
func (s *RAGService) Query(ctx context.Context, question string, topK int, includeSources bool) *QueryResult {
	if strings.TrimSpace(question) == "" {
		return &QueryResult{Answer: "Please provide a question."}
	}
	if topK <= 0 {
		topK = s.topK
	}

	// 缓存命中直接返回
	if cached, ok := s.cache.GetQueryResponse(ctx, question); ok {
		s.metrics.RecordQuery(QueryOutcomeCacheHit)
		return cached
	}

	results, err := s.index.Search(ctx, question, topK)
	if err != nil {
		logger.Error("RAG query failed at search", zap.Error(err))
		s.metrics.RecordQuery(QueryOutcomeError)
		return s.errorResult(err)
	}

	// 空索引的回答不写缓存，避免文档补充后仍返回旧回答
	if len(results) == 0 {
		s.metrics.RecordQuery(QueryOutcomeNoResults)
		return &QueryResult{Answer: insufficientInfoAnswer}
	}

	scored := scoreResults(results)
	prompt := buildPrompt(scored, question)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Error("RAG query failed at generation", zap.Error(err))
		s.metrics.RecordQuery(QueryOutcomeError)
		return s.errorResult(err)
	}

	result := &QueryResult{
		Answer:     answer,
		NumSources: len(scored),
	}
	if includeSources {
		result.Sources = previewSources(scored)
	}

	s.cache.SetQueryResponse(ctx, question, result)
	s.metrics.RecordQuery(QueryOutcomeGenerated)
	logger.Info("RAG query answered", zap.Int("num_sources", result.NumSources))
	return result
}

// ClearIndex 清空向量索引
func (s *RAGService) ClearIndex() bool {
	if err := s.index.Clear(); err != nil {
		logger.Error("Failed to clear vector index", zap.Error(err))
		return false
	}
	return true
}

// GetIndexStats 获取索引统计信息
func (s *RAGService) GetIndexStats() knowledge.IndexStats {
	return s.index.Stats()
}

// SupportedFormats 返回支持的文件格式
func (s *RAGService) SupportedFormats() []string {
	return s.loader.SupportedFormats()
}

func (s *RAGService) errorResult(err error) *QueryResult {
	return &QueryResult{
		Answer: fmt.Sprintf("An error occurred while processing your question: %v", err),
		Error:  true,
	}
}

// scoreResults 将距离转换为相似度并按相似度降序排列。
// 稳定排序：相似度相同时保持原有的距离升序。
func scoreResults(results []knowledge.SearchResult) []QuerySource {
	scored := make([]QuerySource, 0, len(results))
	for _, r := range results {
		scored = append(scored, QuerySource{
			Content:    r.Chunk.Text,
			Metadata:   r.Chunk.Metadata,
			Similarity: knowledge.DistanceToSimilarity(r.Distance),
			Distance:   r.Distance,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	return scored
}

// previewSources 返回用于展示的来源列表，内容截断到200字符
func previewSources(scored []QuerySource) []QuerySource {
	sources := make([]QuerySource, len(scored))
	copy(sources, scored)
	for i := range sources {
		if runes := []rune(sources[i].Content); len(runes) > 200 {
			sources[i].Content = string(runes[:200]) + "..."
		}
	}
	return sources
}

// buildPrompt 拼接检索到的分块为提示词上下文，
// 每块标注位置和相似度分数。
func buildPrompt(sources []QuerySource, question string) string {
	parts := make([]string, 0, len(sources))
	for i, src := range sources {
		parts = append(parts, fmt.Sprintf("[Document %d - Similarity: %.3f]\n%s",
			i+1, src.Similarity, src.Content))
	}
	return fmt.Sprintf(ragPromptTemplate, strings.Join(parts, "\n\n"), question)
}
