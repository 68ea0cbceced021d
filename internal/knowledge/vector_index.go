package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	apperrors "github.com/aihub/ragbot-go/internal/errors"
	"github.com/aihub/ragbot-go/internal/logger"
	"go.uber.org/zap"
)

const indexFileName = "index.json"

// IndexEntry 索引条目：分块与其向量的一一对应。条目只追加，不原地修改。
type IndexEntry struct {
	Chunk     Chunk     `json:"chunk"`
	Embedding []float32 `json:"embedding"`
}

// SearchResult 检索结果，按距离升序排列（越小越相似）
type SearchResult struct {
	Chunk    Chunk
	Distance float64
}

// IndexStats 索引统计信息
type IndexStats struct {
	TotalChunks  int `json:"total_chunks"`
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
	Dimensions   int `json:"dimensions"`
}

// indexSnapshot 持久化文件格式
type indexSnapshot struct {
	Dimensions int          `json:"dimensions"`
	Entries    []IndexEntry `json:"entries"`
}

// VectorIndex 持久化的向量索引。内存中保存全部条目，每次成功的
// Add批次后整体写回磁盘。读写遵循读者-写者原则：Search之间可以
// 并发，Add/Clear独占。
type VectorIndex struct {
	mu         sync.RWMutex
	entries    []IndexEntry
	dimensions int

	path         string
	embedder     Embedder
	chunkSize    int
	chunkOverlap int
}

// NewVectorIndex 创建向量索引。存在持久化文件时先加载；
// 文件损坏时记录警告并以空索引启动，不阻断进程。
func NewVectorIndex(path string, embedder Embedder, chunkSize, chunkOverlap int) *VectorIndex {
	idx := &VectorIndex{
		path:         path,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
	idx.load()
	return idx
}

// load 从磁盘加载索引
func (idx *VectorIndex) load() {
	file := filepath.Join(idx.path, indexFileName)
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("No existing vector index found, starting fresh",
				zap.String("path", idx.path))
		} else {
			logger.Warn("Failed to read vector index, starting fresh",
				zap.String("path", idx.path), zap.Error(err))
		}
		return
	}

	var snapshot indexSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		logger.Warn("Vector index file corrupted, starting fresh",
			zap.String("path", idx.path),
			zap.String("code", string(apperrors.ErrCodeIndexCorrupted)),
			zap.Error(err))
		return
	}

	// 校验条目维度一致
	for _, entry := range snapshot.Entries {
		if len(entry.Embedding) != snapshot.Dimensions {
			logger.Warn("Vector index file has inconsistent dimensions, starting fresh",
				zap.String("path", idx.path),
				zap.Int("expected", snapshot.Dimensions),
				zap.Int("got", len(entry.Embedding)))
			return
		}
	}

	idx.entries = snapshot.Entries
	idx.dimensions = snapshot.Dimensions
	logger.Info("Loaded vector index",
		zap.String("path", idx.path),
		zap.Int("total_chunks", len(idx.entries)),
		zap.Int("dimensions", idx.dimensions))
}

// Add 将分块向量化后追加到索引并持久化。整批原子提交：
// 任一分块向量化失败则整批失败，不落盘任何部分状态。
// 空批次返回(false, nil)，表示"没有变化"而非错误。
func (idx *VectorIndex) Add(ctx context.Context, chunks []Chunk) (bool, error) {
	if len(chunks) == 0 {
		return false, nil
	}

	idx.mu.RLock()
	expected := idx.dimensions
	idx.mu.RUnlock()

	// 先完成全部向量化再进入写锁，外部调用不持锁
	newEntries := make([]IndexEntry, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := idx.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return false, apperrors.NewExternalError(apperrors.ErrCodeExternalService,
				"embedding failed").WithCause(err)
		}
		if len(embedding) == 0 {
			return false, apperrors.NewExternalError(apperrors.ErrCodeExternalService,
				"embedding provider returned empty vector")
		}
		if expected == 0 {
			expected = len(embedding)
		} else if len(embedding) != expected {
			// 同一索引内混入不同维度的向量会静默破坏检索结果，必须立即失败
			return false, apperrors.NewInvariantError(apperrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", expected, len(embedding)))
		}
		newEntries = append(newEntries, IndexEntry{Chunk: chunk, Embedding: embedding})
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimensions != 0 && idx.dimensions != expected {
		return false, apperrors.NewInvariantError(apperrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("embedding dimension mismatch: index has %d, batch has %d", idx.dimensions, expected))
	}

	prevEntries := idx.entries
	prevDimensions := idx.dimensions
	idx.entries = append(idx.entries, newEntries...)
	idx.dimensions = expected

	if err := idx.persistLocked(); err != nil {
		// 持久化失败时回滚内存状态，保持批次原子性
		idx.entries = prevEntries
		idx.dimensions = prevDimensions
		return false, apperrors.NewSystemError(apperrors.ErrCodePersistFailed,
			"failed to persist vector index").WithCause(err)
	}

	logger.Info("Added chunks to vector index",
		zap.Int("added", len(newEntries)),
		zap.Int("total_chunks", len(idx.entries)))
	return true, nil
}

// Search 返回与查询文本最相近的k个分块，按距离升序。
// 空索引返回空结果而非错误；不按分数过滤，阈值策略由调用方决定。
func (idx *VectorIndex) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = 5
	}

	idx.mu.RLock()
	empty := len(idx.entries) == 0
	idx.mu.RUnlock()
	if empty {
		return nil, nil
	}

	queryEmbedding, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperrors.NewExternalError(apperrors.ErrCodeExternalService,
			"query embedding failed").WithCause(err)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.entries) == 0 {
		return nil, nil
	}
	if len(queryEmbedding) != idx.dimensions {
		return nil, apperrors.NewInvariantError(apperrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("query embedding dimension mismatch: index has %d, query has %d",
				idx.dimensions, len(queryEmbedding)))
	}

	results := make([]SearchResult, 0, len(idx.entries))
	for _, entry := range idx.entries {
		results = append(results, SearchResult{
			Chunk:    entry.Chunk,
			Distance: l2Distance(queryEmbedding, entry.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Clear 清空索引：丢弃内存状态和持久化文件。
// 之后的Search表现为空索引，直到下一次Add。
func (idx *VectorIndex) Clear() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries = nil
	idx.dimensions = 0

	if err := os.RemoveAll(idx.path); err != nil {
		return fmt.Errorf("清除索引文件失败: %w", err)
	}
	logger.Info("Vector index cleared", zap.String("path", idx.path))
	return nil
}

// Stats 返回索引统计信息
func (idx *VectorIndex) Stats() IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return IndexStats{
		TotalChunks:  len(idx.entries),
		ChunkSize:    idx.chunkSize,
		ChunkOverlap: idx.chunkOverlap,
		Dimensions:   idx.dimensions,
	}
}

// persistLocked 将当前索引整体写回磁盘。先写临时文件再原子重命名，
// 避免进程中断留下半成品。调用方必须持有写锁。
func (idx *VectorIndex) persistLocked() error {
	if err := os.MkdirAll(idx.path, 0o755); err != nil {
		return fmt.Errorf("创建索引目录失败: %w", err)
	}

	data, err := json.Marshal(indexSnapshot{
		Dimensions: idx.dimensions,
		Entries:    idx.entries,
	})
	if err != nil {
		return fmt.Errorf("序列化索引失败: %w", err)
	}

	file := filepath.Join(idx.path, indexFileName)
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("写入索引文件失败: %w", err)
	}
	if err := os.Rename(tmp, file); err != nil {
		return fmt.Errorf("替换索引文件失败: %w", err)
	}
	return nil
}
