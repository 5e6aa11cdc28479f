package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 守护进程级业务指标（连接层指标见 pkg/connection）
type AppMetrics struct {
	ReconnectsTotal   prometheus.Counter // 重连次数
	PollsTotal        prometheus.Counter // 总线状态轮询次数
	MQTTPublished     prometheus.Counter
	MQTTPublishErrors prometheus.Counter
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		ReconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busmon_reconnects_total",
			Help: "Total device reconnect attempts.",
		}),
		PollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busmon_polls_total",
			Help: "Total bus status polls issued.",
		}),
		MQTTPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busmon_mqtt_published_total",
			Help: "Total frames published to MQTT.",
		}),
		MQTTPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busmon_mqtt_publish_errors_total",
			Help: "Total MQTT publish failures.",
		}),
	}
	reg.MustRegister(m.ReconnectsTotal, m.PollsTotal, m.MQTTPublished, m.MQTTPublishErrors)
	return m
}
