package knowledge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIGenerator_NoKeyFallsBackToNoop(t *testing.T) {
	gen := NewOpenAIGenerator("", "gpt-4o-mini", "", time.Second)
	assert.False(t, gen.Ready())

	_, err := gen.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Paris."}}]}`))
	}))
	defer server.Close()

	gen := NewOpenAIGenerator("sk-test", "gpt-4o-mini", server.URL+"/v1", 5*time.Second)
	answer, err := gen.Generate(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)
}

func TestOpenAIGenerator_CallTimeoutBounded(t *testing.T) {
	// 端点长时间无响应时调用必须在配置的超时内返回错误
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	gen := NewOpenAIGenerator("sk-test", "gpt-4o-mini", server.URL+"/v1", 50*time.Millisecond)

	start := time.Now()
	_, err := gen.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
