package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryKey_Normalization(t *testing.T) {
	// 仅大小写和首尾空白不同的问法命中同一键
	assert.Equal(t, QueryKey("What is Go?"), QueryKey("  what is go?  "))
	assert.Equal(t, QueryKey("HELLO"), QueryKey("hello"))

	// 内容不同则键不同
	assert.NotEqual(t, QueryKey("What is Go?"), QueryKey("What is Rust?"))
	// 内部空白不参与归一化
	assert.NotEqual(t, QueryKey("what is go?"), QueryKey("what  is  go?"))
}

func TestQueryKey_Prefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(QueryKey("q"), "query:"))
	assert.True(t, strings.HasPrefix(ImageKey([]byte{1}), "image:"))
}

func TestImageKey_ContentAddressed(t *testing.T) {
	a := []byte{0x89, 0x50, 0x4e, 0x47}
	b := []byte{0x89, 0x50, 0x4e, 0x47}
	c := []byte{0x89, 0x50, 0x4e, 0x48}

	// 相同字节总是同一键，与来源文件名无关
	assert.Equal(t, ImageKey(a), ImageKey(b))
	assert.NotEqual(t, ImageKey(a), ImageKey(c))
}

func TestCacheService_DisabledMode(t *testing.T) {
	// nil客户端表示Redis不可用，服务降级为空操作
	svc := NewCacheService(nil, time.Hour)
	require.NotNil(t, svc)
	assert.False(t, svc.Enabled())

	ctx := context.Background()

	desc, hit := svc.GetImageDescription(ctx, ImageKey([]byte("img")))
	assert.False(t, hit)
	assert.Empty(t, desc)
	assert.False(t, svc.SetImageDescription(ctx, ImageKey([]byte("img")), "a cat"))

	result, hit := svc.GetQueryResponse(ctx, "question")
	assert.False(t, hit)
	assert.Nil(t, result)
	assert.False(t, svc.SetQueryResponse(ctx, "question", &QueryResult{Answer: "x"}))

	assert.False(t, svc.Clear(ctx, ScopeAll))

	stats := svc.Stats(ctx)
	assert.False(t, stats.Enabled)
}

func TestCacheService_StatsBackendUnreachable(t *testing.T) {
	// 后端中途不可达时统计返回零计数而不是挂起或panic
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()
	svc := &CacheService{client: client, enabled: true, ttl: time.Hour, hitStats: &CacheHitStats{}}

	stats := svc.Stats(context.Background())
	assert.True(t, stats.Enabled)
	assert.Zero(t, stats.ImageKeys)
	assert.Zero(t, stats.QueryKeys)
	assert.Zero(t, stats.TotalKeys)
}

func TestCacheService_DefaultTTL(t *testing.T) {
	svc := NewCacheService(nil, 0)
	require.NotNil(t, svc)
	// ttl非法时使用默认值，不panic即可
	assert.False(t, svc.Enabled())
}
