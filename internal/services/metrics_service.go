package services

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 查询结果分类标签
const (
	QueryOutcomeCacheHit  = "cache_hit"
	QueryOutcomeGenerated = "generated"
	QueryOutcomeNoResults = "no_results"
	QueryOutcomeError     = "error"
)

// MetricsService 指标服务
type MetricsService struct {
	queriesTotal  *prometheus.CounterVec
	chunksIndexed prometheus.Counter
	ingestsTotal  *prometheus.CounterVec
}

// NewMetricsService 创建指标服务并注册Prometheus计数器
func NewMetricsService() *MetricsService {
	return &MetricsService{
		queriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ragbot_queries_total",
			Help: "Total RAG queries by outcome.",
		}, []string{"outcome"}),
		chunksIndexed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ragbot_chunks_indexed_total",
			Help: "Total chunks added to the vector index.",
		}),
		ingestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ragbot_ingests_total",
			Help: "Total document ingest operations by result.",
		}, []string{"result"}),
	}
}

// RecordQuery 记录一次查询
func (ms *MetricsService) RecordQuery(outcome string) {
	if ms == nil {
		return
	}
	ms.queriesTotal.WithLabelValues(outcome).Inc()
}

// RecordIngest 记录一次摄取
func (ms *MetricsService) RecordIngest(ok bool, chunks int) {
	if ms == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	ms.ingestsTotal.WithLabelValues(result).Inc()
	if chunks > 0 {
		ms.chunksIndexed.Add(float64(chunks))
	}
}

// Handler 返回Prometheus指标的HTTP处理器
func (ms *MetricsService) Handler() http.Handler {
	return promhttp.Handler()
}

// ServeHTTP 实现http.Handler接口
func (ms *MetricsService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ms.Handler().ServeHTTP(w, r)
}
