// Package metrics 注册 Prometheus 指标：HTTP 请求指标在这里，存储布局指标在 domain.go.
//
// 指标变量总是可用，未启用时只计数不导出.
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 注册到 http.DefaultServeMux
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/advstorage/pkg/configs"
)

var (
	// RequestCounter 按方法、路由模板和状态类别（2xx、4xx 等）统计的请求数.
	RequestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// RequestDuration 请求耗时.
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	// RequestSize 请求体大小，主要反映上传实例的体积.
	RequestSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_size_bytes",
		Help:    "HTTP request body size in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	}, []string{"method", "endpoint"})

	// InflightRequests 正在处理的请求数.
	InflightRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Number of HTTP requests being served",
	})

	registry = prometheus.NewRegistry()

	// registerer 给全部指标加上配置中的常量标签
	registerer prometheus.Registerer = registry

	customCounters = map[string]*prometheus.CounterVec{}

	initOnce sync.Once
)

// InitMetrics 注册全部指标，只有第一次调用生效.
func InitMetrics(cfg configs.MetricsConfig) error {
	if !cfg.Enabled {
		return nil
	}

	var err error

	initOnce.Do(func() {
		if len(cfg.Labels) > 0 {
			registerer = prometheus.WrapRegistererWith(cfg.Labels, registry)
		}

		if cfg.RuntimeMetrics {
			if err = register(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			); err != nil {
				return
			}
		}

		if err = register(RequestCounter, RequestDuration, RequestSize, InflightRequests); err != nil {
			return
		}

		if err = register(domainCollectors()...); err != nil {
			return
		}

		for _, name := range cfg.CustomMetrics {
			if _, ok := customCounters[name]; ok {
				continue
			}

			c := prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: name,
				Help: "Custom counter " + name,
			}, []string{"source"})
			if err = register(c); err != nil {
				return
			}

			customCounters[name] = c
		}
	})

	return err
}

func register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := registerer.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// Custom 返回配置中声明的自定义计数器，未声明时返回 nil.
func Custom(name string) *prometheus.CounterVec {
	return customCounters[name]
}

// StartMetricsServer 在引擎上挂载 /metrics，以及可选的 pprof.
func StartMetricsServer(cfg configs.MetricsConfig, engine *gin.Engine) error {
	if !cfg.Enabled {
		return nil
	}

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	if cfg.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 返回指标注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
