// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集摄取管线与系统指标.
//
// Example:
//
//	import "github.com/yeisme/filegate/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// 记录指标
//	metrics.IngestCounter.WithLabelValues("success").Inc()
//	metrics.StageDuration.WithLabelValues("scanning").Observe(0.1)
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/filegate/pkg/configs"
)

// 摄取结果标签值.
const (
	OutcomeSuccess     = "success"
	OutcomeValidation  = "validation_rejected"
	OutcomeQuarantined = "quarantined"
	OutcomeQuota       = "quota_exceeded"
	OutcomeStorage     = "storage_failure"
	OutcomeInternal    = "internal_error"
)

// 全局指标变量.
var (
	// IngestCounter 摄取请求计数器，按结果分类.
	IngestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_total",
			Help: "Total number of ingestion attempts by outcome",
		},
		[]string{"outcome"},
	)

	// StageDuration 管线各阶段耗时.
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// StoredBytes 成功摄取的累计字节数.
	StoredBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_stored_bytes_total",
			Help: "Total bytes committed to the active storage tree",
		},
	)

	// QuarantineCounter 隔离文件计数器，按判定来源分类.
	QuarantineCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarantine_total",
			Help: "Total number of quarantined files by verdict source",
		},
		[]string{"source"},
	)

	// VariantCounter 变体派生计数器，按结果分类.
	VariantCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "variant_derive_total",
			Help: "Total number of variant derivations by outcome",
		},
		[]string{"outcome"},
	)

	// ScanEngineState 扫描引擎可用状态（1 可用，0 降级为启发式）.
	ScanEngineState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scan_engine_available",
			Help: "Whether the external scan engine is reachable (1) or the screener degraded to heuristics (0)",
		},
	)

	// StagingPurgedCounter 定时清理掉的暂存文件数.
	StagingPurgedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "staging_purged_total",
			Help: "Total number of expired staging files purged",
		},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
)

// InitMetrics 初始化Metrics.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	// 注册标准收集器
	if config.RuntimeMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	// 注册摄取管线指标
	registry.MustRegister(
		IngestCounter, StageDuration, StoredBytes,
		QuarantineCounter, VariantCounter,
		ScanEngineState, StagingPurgedCounter,
	)

	return nil
}

// StartMetricsServer 启动独立的Metrics HTTP服务器，返回关闭函数.
func StartMetricsServer(config configs.MetricsConfig) (func(), error) {
	if !config.Enabled {
		return func() {}, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	if config.Pprof {
		mux.Handle("/debug/pprof/", http.DefaultServeMux)
	}

	srv := &http.Server{
		Addr:              config.Endpoint,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		_ = srv.ListenAndServe()
	}()

	return func() { _ = srv.Close() }, nil
}

// ObserveStage 记录某阶段耗时.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}

// NewCounter 创建新的计数器指标.
func NewCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
	registry.MustRegister(counter)

	return counter
}

// NewGauge 创建新的仪表盘指标.
func NewGauge(name, help string, labels []string) *prometheus.GaugeVec {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
	registry.MustRegister(gauge)

	return gauge
}

// NewHistogram 创建新的直方图指标.
func NewHistogram(name, help string, labels []string) *prometheus.HistogramVec {
	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name,
			Help:    help,
			Buckets: prometheus.DefBuckets,
		},
		labels,
	)
	registry.MustRegister(histogram)

	return histogram
}
