package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/aihub/ragbot-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 确定性的测试嵌入器：按预置表返回向量
type fakeEmbedder struct {
	vectors map[string][]float32
	dims    int
	calls   int
	err     error
}

func newFakeEmbedder(dims int) *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{}, dims: dims}
}

func (f *fakeEmbedder) set(text string, vec []float32) {
	f.vectors[text] = vec
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	// 未预置的文本返回零向量
	return make([]float32, f.dims), nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }
func (f *fakeEmbedder) Ready() bool     { return true }

func newTestIndex(t *testing.T, embedder Embedder) *VectorIndex {
	t.Helper()
	return NewVectorIndex(t.TempDir(), embedder, 512, 64)
}

func TestVectorIndex_AddEmptyBatch(t *testing.T) {
	embedder := newFakeEmbedder(3)
	idx := newTestIndex(t, embedder)

	// 空批次不是错误，也不触发任何向量化
	added, err := idx.Add(context.Background(), nil)
	assert.False(t, added)
	assert.NoError(t, err)
	assert.Equal(t, 0, embedder.calls)
	assert.Equal(t, 0, idx.Stats().TotalChunks)
}

func TestVectorIndex_SearchEmptyIndex(t *testing.T) {
	embedder := newFakeEmbedder(3)
	idx := newTestIndex(t, embedder)

	results, err := idx.Search(context.Background(), "anything", 5)
	assert.NoError(t, err)
	assert.Empty(t, results)
	// 空索引短路，不调用嵌入器
	assert.Equal(t, 0, embedder.calls)
}

func TestVectorIndex_AddAndSearch(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.set("cats", []float32{1, 0, 0})
	embedder.set("dogs", []float32{0, 1, 0})
	embedder.set("fish", []float32{0, 0, 1})
	embedder.set("feline", []float32{0.9, 0.1, 0})
	idx := newTestIndex(t, embedder)

	added, err := idx.Add(context.Background(), []Chunk{
		{Index: 0, Text: "cats"},
		{Index: 1, Text: "dogs"},
		{Index: 2, Text: "fish"},
	})
	require.NoError(t, err)
	assert.True(t, added)

	results, err := idx.Search(context.Background(), "feline", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// 距离升序：cats最近
	assert.Equal(t, "cats", results[0].Chunk.Text)
	assert.Less(t, results[0].Distance, results[1].Distance)
}

func TestVectorIndex_SearchDefaultK(t *testing.T) {
	embedder := newFakeEmbedder(2)
	idx := newTestIndex(t, embedder)

	var chunks []Chunk
	for i := 0; i < 8; i++ {
		chunks = append(chunks, Chunk{Index: i, Text: string(rune('a' + i))})
	}
	_, err := idx.Add(context.Background(), chunks)
	require.NoError(t, err)

	// k<=0回落到默认值5
	results, err := idx.Search(context.Background(), "a", 0)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestVectorIndex_PersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	embedder := newFakeEmbedder(3)
	embedder.set("alpha", []float32{1, 0, 0})
	embedder.set("beta", []float32{0, 1, 0})

	idx := NewVectorIndex(dir, embedder, 512, 64)
	_, err := idx.Add(context.Background(), []Chunk{
		{Index: 0, Text: "alpha", Metadata: Metadata{Filename: "a.txt"}},
		{Index: 1, Text: "beta"},
	})
	require.NoError(t, err)

	// 重新打开同一路径，状态应完整恢复
	reopened := NewVectorIndex(dir, embedder, 512, 64)
	stats := reopened.Stats()
	assert.Equal(t, 2, stats.TotalChunks)
	assert.Equal(t, 3, stats.Dimensions)

	results, err := reopened.Search(context.Background(), "alpha", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha", results[0].Chunk.Text)
	assert.Equal(t, "a.txt", results[0].Chunk.Metadata.Filename)
}

func TestVectorIndex_CorruptedFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte("{not json"), 0o644))

	embedder := newFakeEmbedder(3)
	idx := NewVectorIndex(dir, embedder, 512, 64)
	assert.Equal(t, 0, idx.Stats().TotalChunks)

	// 损坏的文件不阻止后续写入
	embedder.set("x", []float32{1, 2, 3})
	added, err := idx.Add(context.Background(), []Chunk{{Text: "x"}})
	require.NoError(t, err)
	assert.True(t, added)
}

func TestVectorIndex_DimensionMismatchFailsLoudly(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.set("first", []float32{1, 0, 0})
	embedder.set("wrong", []float32{1, 0})
	idx := newTestIndex(t, embedder)

	_, err := idx.Add(context.Background(), []Chunk{{Text: "first"}})
	require.NoError(t, err)

	_, err = idx.Add(context.Background(), []Chunk{{Text: "wrong"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvariant))
	// 失败的批次不留下部分状态
	assert.Equal(t, 1, idx.Stats().TotalChunks)
}

func TestVectorIndex_AddAllOrNothing(t *testing.T) {
	embedder := newFakeEmbedder(3)
	embedder.set("good", []float32{1, 0, 0})
	idx := newTestIndex(t, embedder)

	_, err := idx.Add(context.Background(), []Chunk{{Text: "good"}})
	require.NoError(t, err)

	// 批次中第二个分块向量化失败，整批丢弃
	embedder.err = errors.New("provider down")
	added, err := idx.Add(context.Background(), []Chunk{{Text: "good"}, {Text: "other"}})
	assert.False(t, added)
	require.Error(t, err)
	assert.Equal(t, 1, idx.Stats().TotalChunks)
}

func TestVectorIndex_Clear(t *testing.T) {
	dir := t.TempDir()
	embedder := newFakeEmbedder(3)
	embedder.set("x", []float32{1, 2, 3})

	idx := NewVectorIndex(dir, embedder, 512, 64)
	_, err := idx.Add(context.Background(), []Chunk{{Text: "x"}})
	require.NoError(t, err)

	require.NoError(t, idx.Clear())
	assert.Equal(t, 0, idx.Stats().TotalChunks)
	assert.Equal(t, 0, idx.Stats().Dimensions)

	results, err := idx.Search(context.Background(), "x", 5)
	assert.NoError(t, err)
	assert.Empty(t, results)

	// 持久化文件也被删除
	_, statErr := os.Stat(filepath.Join(dir, "index.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDistanceToSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, DistanceToSimilarity(0), 1e-9)
	assert.Greater(t, DistanceToSimilarity(0.5), DistanceToSimilarity(1.0))
	assert.Greater(t, DistanceToSimilarity(10), 0.0)
}
