package monitor

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	appmetrics "github.com/taoyao-code/knx-usb/internal/metrics"
	"github.com/taoyao-code/knx-usb/pkg/connection"
	"github.com/taoyao-code/knx-usb/pkg/hiddev"
	"github.com/taoyao-code/knx-usb/pkg/protocol/hidreport"
)

// Publisher 解码帧的外发出口，如 MQTT
type Publisher interface {
	PublishFrame(code string, body []byte) error
}

// Frame 外发的帧描述
type Frame struct {
	Code    string    `json:"code"`
	Payload string    `json:"payload"` // hex
	At      time.Time `json:"at"`
}

// Snapshot 监视器当前状态
type Snapshot struct {
	Frames      uint64    `json:"frames"`
	LastCode    string    `json:"last_code,omitempty"`
	LastPayload string    `json:"last_payload,omitempty"` // hex
	LastAt      time.Time `json:"last_at"`
	BusStatus   string    `json:"bus_status"`
}

const (
	busUnknown  = "unknown"
	busActive   = "active"
	busInactive = "inactive"
)

// Handler 总线监视处理器，实现 connection.Handler
// 记录并外发解码帧，周期性轮询总线连接状态。
type Handler struct {
	logger *zap.Logger
	codes  *MessageCodeMap
	pub    Publisher
	appm   *appmetrics.AppMetrics

	pollInterval time.Duration
	conn         atomic.Pointer[connection.Conn]
	stopC        chan struct{}
	stopOnce     sync.Once

	mu          sync.Mutex
	started     bool
	frames      uint64
	lastCode    string
	lastPayload []byte
	lastAt      time.Time
	busStatus   string
	pollPending bool
}

// NewHandler 创建监视处理器
// codes 为 nil 时使用内置映射，pub/appm 可为 nil。
func NewHandler(
	codes *MessageCodeMap,
	pollInterval time.Duration,
	pub Publisher,
	appm *appmetrics.AppMetrics,
	logger *zap.Logger,
) *Handler {
	if codes == nil {
		codes = DefaultMessageCodeMap()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger:       logger,
		codes:        codes,
		pub:          pub,
		appm:         appm,
		pollInterval: pollInterval,
		stopC:        make(chan struct{}),
		busStatus:    busUnknown,
	}
}

// Bind 关联当前连接供轮询使用，每次重连后重新调用
func (h *Handler) Bind(conn *connection.Conn) {
	h.conn.Store(conn)
}

// StartPolling 启动总线状态轮询协程，pollInterval 为 0 时不轮询
func (h *Handler) StartPolling() {
	if h.pollInterval <= 0 {
		return
	}
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	go h.pollLoop()
}

// Close 停止轮询协程
func (h *Handler) Close() {
	h.stopOnce.Do(func() { close(h.stopC) })
}

func (h *Handler) pollLoop() {
	t := time.NewTicker(h.pollInterval)
	defer t.Stop()
	for {
		select {
		case <-h.stopC:
			return
		case <-t.C:
			h.poll()
		}
	}
}

// poll 发送一次总线连接状态查询
func (h *Handler) poll() {
	c := h.conn.Load()
	if c == nil || c.State() != connection.StateConnected {
		return
	}

	h.mu.Lock()
	h.pollPending = true
	h.mu.Unlock()

	opts := hidreport.DefaultEncodeOptions()
	opts.Protocol = hidreport.ProtocolBusAccessServerFeature
	opts.EMIID = byte(hidreport.ServiceFeatureGet)
	c.SendWith([]byte{byte(hidreport.FeatureBusConnectionStatus)}, opts)

	if h.appm != nil {
		h.appm.PollsTotal.Inc()
	}
	h.logger.Debug("bus status poll sent")
}

// Init 建连前回调，无状态需要准备
func (h *Handler) Init(cfg connection.Config) error {
	h.logger.Debug("monitor handler initialized", zap.String("device", cfg.DevicePath))
	return nil
}

// HandleConnected 记录设备信息
func (h *Handler) HandleConnected(info hiddev.Info) connection.Action {
	h.logger.Info("bus interface connected",
		zap.String("path", info.Path),
		zap.String("vendor_id", fmt.Sprintf("%04x", info.VendorID)),
		zap.String("product_id", fmt.Sprintf("%04x", info.ProductID)),
		zap.String("name", info.Name))
	return connection.Continue()
}

// HandleFrame 记录并外发一条解码帧
func (h *Handler) HandleFrame(payload []byte) connection.Action {
	if len(payload) == 0 {
		return connection.Continue()
	}
	if h.takeBusStatus(payload) {
		return connection.Continue()
	}

	code := h.codes.Describe(payload[0])
	h.record(code, payload)
	h.logger.Debug("bus frame",
		zap.String("code", code),
		zap.String("payload", hex.EncodeToString(payload)))

	if h.pub != nil {
		h.publish(code, payload)
	}
	return connection.Continue()
}

// HandleDisconnected 连接丢失，总线状态回到未知
func (h *Handler) HandleDisconnected(reason error) connection.Action {
	h.logger.Warn("bus interface disconnected", zap.Error(reason))
	h.resetBusStatus()
	return connection.Continue()
}

// Terminate 连接终止
func (h *Handler) Terminate(reason error) {
	if reason != nil {
		h.logger.Info("connection terminated", zap.Error(reason))
	} else {
		h.logger.Info("connection terminated")
	}
	h.resetBusStatus()
}

// Snapshot 返回当前监视状态
func (h *Handler) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Snapshot{
		Frames:    h.frames,
		LastCode:  h.lastCode,
		LastAt:    h.lastAt,
		BusStatus: h.busStatus,
	}
	if len(h.lastPayload) > 0 {
		s.LastPayload = hex.EncodeToString(h.lastPayload)
	}
	return s
}

func (h *Handler) record(code string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames++
	h.lastCode = code
	h.lastPayload = append(h.lastPayload[:0], payload...)
	h.lastAt = time.Now()
}

// takeBusStatus 在轮询等待期间截获总线连接状态应答
// 应答载荷为 [feature_id, status]，不会与 cEMI 报文码冲突。
func (h *Handler) takeBusStatus(payload []byte) bool {
	if len(payload) != 2 || payload[0] != byte(hidreport.FeatureBusConnectionStatus) {
		return false
	}

	h.mu.Lock()
	if !h.pollPending {
		h.mu.Unlock()
		return false
	}
	h.pollPending = false
	prev := h.busStatus
	if payload[1] != 0 {
		h.busStatus = busActive
	} else {
		h.busStatus = busInactive
	}
	cur := h.busStatus
	h.mu.Unlock()

	if cur != prev {
		h.logger.Info("bus connection status changed", zap.String("status", cur))
	}
	return true
}

func (h *Handler) resetBusStatus() {
	h.mu.Lock()
	h.pollPending = false
	h.busStatus = busUnknown
	h.mu.Unlock()
}

func (h *Handler) publish(code string, payload []byte) {
	body, err := json.Marshal(Frame{
		Code:    code,
		Payload: hex.EncodeToString(payload),
		At:      time.Now(),
	})
	if err != nil {
		h.logger.Warn("marshal frame failed", zap.Error(err))
		return
	}
	if err := h.pub.PublishFrame(code, body); err != nil {
		if h.appm != nil {
			h.appm.MQTTPublishErrors.Inc()
		}
		h.logger.Warn("publish frame failed", zap.String("code", code), zap.Error(err))
		return
	}
	if h.appm != nil {
		h.appm.MQTTPublished.Inc()
	}
}
