package connection

import "github.com/prometheus/client_golang/prometheus"

// Metrics 连接层指标，注册后挂到 Config 上即可启用
type Metrics struct {
	FramesIn      prometheus.Counter
	FramesOut     prometheus.Counter
	BytesIn       prometheus.Counter
	BytesOut      prometheus.Counter
	DecodeErrors  prometheus.Counter
	FramesDropped prometheus.Counter // 入站限流丢弃
	Disconnects   prometheus.Counter
	StateGauge    prometheus.Gauge // 当前连接状态 (State 枚举值)
}

// NewMetrics 注册并返回连接层指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hid_frames_in_total",
			Help: "Total inbound reports decoded successfully.",
		}),
		FramesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hid_frames_out_total",
			Help: "Total reports written to the device.",
		}),
		BytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hid_bytes_in_total",
			Help: "Total bytes read from the device.",
		}),
		BytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hid_bytes_out_total",
			Help: "Total bytes written to the device.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hid_decode_errors_total",
			Help: "Total inbound reports dropped due to decode errors.",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hid_frames_dropped_total",
			Help: "Total inbound frames dropped by the rate limiter.",
		}),
		Disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hid_disconnects_total",
			Help: "Total connection losses.",
		}),
		StateGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hid_connection_state",
			Help: "Current connection state (0=init 1=connecting 2=connected 3=disconnecting 4=terminated).",
		}),
	}
	reg.MustRegister(
		m.FramesIn, m.FramesOut, m.BytesIn, m.BytesOut,
		m.DecodeErrors, m.FramesDropped, m.Disconnects, m.StateGauge,
	)
	return m
}
