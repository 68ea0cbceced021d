package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/aihub/ragbot-go/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 缓存键命名空间：图片描述和问答结果共用一个Redis库
const (
	imageKeyPrefix = "image:"
	queryKeyPrefix = "query:"
)

// CacheScope 缓存清理范围
type CacheScope string

const (
	ScopeAll     CacheScope = "all"
	ScopeImages  CacheScope = "images"
	ScopeQueries CacheScope = "queries"
)

// ImageKey 根据图片原始字节生成缓存键。内容哈希保证
// 相同字节无论文件名如何都命中同一条目。
func ImageKey(data []byte) string {
	sum := sha256.Sum256(data)
	return imageKeyPrefix + hex.EncodeToString(sum[:])
}

// QueryKey 根据问题文本生成缓存键。先小写并去除首尾空白，
// 使仅大小写/空白不同的问法命中同一条目。
func QueryKey(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := sha256.Sum256([]byte(normalized))
	return queryKeyPrefix + hex.EncodeToString(sum[:])
}

// CacheHitStats 缓存命中率统计
type CacheHitStats struct {
	hits   int64
	misses int64
	mu     sync.RWMutex
}

// CacheStats 缓存统计信息
type CacheStats struct {
	Enabled   bool    `json:"enabled"`
	TotalKeys int64   `json:"total_keys,omitempty"`
	ImageKeys int64   `json:"image_keys,omitempty"`
	QueryKeys int64   `json:"query_keys,omitempty"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
}

// CacheService Redis响应缓存（图片描述 + 问答结果）。
// Redis不可用时服务自动降级为禁用状态：所有操作变为
// 返回"未命中"的空操作，不影响主流程。
type CacheService struct {
	client   *redis.Client
	enabled  bool
	ttl      time.Duration
	hitStats *CacheHitStats
}

// NewCacheService 创建缓存服务。client为nil表示Redis连接失败，
// 服务以禁用状态创建。
func NewCacheService(client *redis.Client, ttl time.Duration) *CacheService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if client == nil {
		logger.Warn("Redis unavailable, response cache disabled")
		return &CacheService{enabled: false, hitStats: &CacheHitStats{}}
	}
	return &CacheService{
		client:   client,
		enabled:  true,
		ttl:      ttl,
		hitStats: &CacheHitStats{},
	}
}

// Enabled 缓存是否可用
func (s *CacheService) Enabled() bool {
	return s.enabled && s.client != nil
}

// GetImageDescription 获取缓存的图片描述
func (s *CacheService) GetImageDescription(ctx context.Context, key string) (string, bool) {
	if !s.Enabled() {
		return "", false
	}

	cached, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Error("Redis GET error", zap.Error(err))
		}
		s.recordMiss()
		return "", false
	}

	s.recordHit()
	logger.Info("Cache HIT for image", zap.String("key", truncateKey(key)))
	return cached, true
}

// SetImageDescription 缓存图片描述
func (s *CacheService) SetImageDescription(ctx context.Context, key, description string) bool {
	if !s.Enabled() {
		return false
	}

	if err := s.client.Set(ctx, key, description, s.ttl).Err(); err != nil {
		logger.Error("Redis SET error", zap.Error(err))
		return false
	}
	return true
}

// GetQueryResponse 获取缓存的问答结果
func (s *CacheService) GetQueryResponse(ctx context.Context, question string) (*QueryResult, bool) {
	if !s.Enabled() {
		return nil, false
	}

	key := QueryKey(question)
	cached, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Error("Cache read error", zap.Error(err))
		}
		s.recordMiss()
		return nil, false
	}

	var result QueryResult
	if err := json.Unmarshal([]byte(cached), &result); err != nil {
		logger.Error("Cache entry corrupted, dropping", zap.String("key", truncateKey(key)), zap.Error(err))
		s.client.Del(ctx, key)
		s.recordMiss()
		return nil, false
	}

	s.recordHit()
	logger.Info("Cache HIT for query", zap.String("key", truncateKey(key)))
	return &result, true
}

// SetQueryResponse 缓存问答结果
func (s *CacheService) SetQueryResponse(ctx context.Context, question string, result *QueryResult) bool {
	if !s.Enabled() || result == nil {
		return false
	}

	data, err := json.Marshal(result)
	if err != nil {
		logger.Error("Cache write error", zap.Error(err))
		return false
	}

	key := QueryKey(question)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		logger.Error("Cache write error", zap.Error(err))
		return false
	}
	return true
}

// Clear 按范围清理缓存
func (s *CacheService) Clear(ctx context.Context, scope CacheScope) bool {
	if !s.Enabled() {
		return false
	}

	var prefixes []string
	switch scope {
	case ScopeImages:
		prefixes = []string{imageKeyPrefix}
	case ScopeQueries:
		prefixes = []string{queryKeyPrefix}
	case ScopeAll:
		prefixes = []string{imageKeyPrefix, queryKeyPrefix}
	default:
		logger.Warn("Unknown cache scope", zap.String("scope", string(scope)))
		return false
	}

	for _, prefix := range prefixes {
		deleted, err := s.deleteByPrefix(ctx, prefix)
		if err != nil {
			logger.Error("Redis clear error", zap.String("prefix", prefix), zap.Error(err))
			return false
		}
		logger.Info("Cleared cache namespace",
			zap.String("prefix", prefix), zap.Int64("deleted", deleted))
	}
	return true
}

// Stats 返回缓存统计信息
func (s *CacheService) Stats(ctx context.Context) CacheStats {
	hits, misses, hitRate := s.hitStats.snapshot()
	stats := CacheStats{
		Enabled: s.Enabled(),
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
	if !s.Enabled() {
		return stats
	}

	stats.ImageKeys = s.countByPrefix(ctx, imageKeyPrefix)
	stats.QueryKeys = s.countByPrefix(ctx, queryKeyPrefix)
	if total, err := s.client.DBSize(ctx).Result(); err == nil {
		stats.TotalKeys = total
	}
	return stats
}

// deleteByPrefix 扫描并删除指定前缀的所有键
func (s *CacheService) deleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	var deleted int64
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, iter.Err()
}

func (s *CacheService) countByPrefix(ctx context.Context, prefix string) int64 {
	var count int64
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		// 扫描中断时计数不完整
		logger.Error("Redis scan error", zap.String("prefix", prefix), zap.Error(err))
	}
	return count
}

func (s *CacheService) recordHit() {
	s.hitStats.mu.Lock()
	s.hitStats.hits++
	s.hitStats.mu.Unlock()
}

func (s *CacheService) recordMiss() {
	s.hitStats.mu.Lock()
	s.hitStats.misses++
	s.hitStats.mu.Unlock()
}

func (st *CacheHitStats) snapshot() (hits, misses int64, hitRate float64) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	hits = st.hits
	misses = st.misses
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return
}

// truncateKey 日志里只展示键的前缀部分
func truncateKey(key string) string {
	if len(key) > 24 {
		return key[:24] + "..."
	}
	return key
}
