package connection

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/taoyao-code/knx-usb/pkg/hiddev"
	"github.com/taoyao-code/knx-usb/pkg/protocol/hidreport"
)

// DefaultChunkSize 读取任务单次阻塞读的字节数，与常见 HID 报告长度一致
const DefaultChunkSize = 64

// State 连接状态机
type State int32

const (
	StateInit State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateTerminated
)

var stateNames = map[State]string{
	StateInit:          "init",
	StateConnecting:    "connecting",
	StateConnected:     "connected",
	StateDisconnecting: "disconnecting",
	StateTerminated:    "terminated",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Config 连接配置
type Config struct {
	// DevicePath HID 字符设备路径，如 /dev/hidraw0
	DevicePath string
	// ChunkSize 读取任务单次阻塞读的字节数，默认 DefaultChunkSize
	ChunkSize int
	// Open 设备打开函数，默认 hiddev.Open，测试时可注入 Mock
	Open hiddev.OpenFunc
	// Logger 结构化日志，默认 zap.NewNop()
	Logger *zap.Logger
	// Metrics 连接层指标，nil 表示不上报
	Metrics *Metrics
	// FrameRate 入站帧限流 (帧/秒)，0 表示不限流
	FrameRate float64
	// FrameBurst 入站帧限流突发容量，默认为 FrameRate 向下取整 (至少 1)
	FrameBurst int
}

// Stats 连接累计统计
type Stats struct {
	FramesIn      uint64 `json:"frames_in"`
	FramesOut     uint64 `json:"frames_out"`
	BytesIn       uint64 `json:"bytes_in"`
	BytesOut      uint64 `json:"bytes_out"`
	DecodeErrors  uint64 `json:"decode_errors"`
	FramesDropped uint64 `json:"frames_dropped"`
	Mailbox       int    `json:"mailbox"`
}

// 信箱消息种类
type msgKind int

const (
	msgSend msgKind = iota
	msgFrameData
	msgReaderFailure
	msgStop
)

type message struct {
	kind    msgKind
	payload []byte                  // msgSend
	opts    hidreport.EncodeOptions // msgSend
	raw     []byte                  // msgFrameData
	err     error                   // msgReaderFailure
}

// Conn 驱动单台设备的连接执行体
// 事件循环单协程处理信箱消息，连接状态不会被并发修改；
// 读取任务独立协程阻塞读设备，设备写入仅由事件循环执行。
type Conn struct {
	id  string
	cfg Config
	h   Handler
	log *zap.Logger

	mbox    *mailbox
	limiter *rate.Limiter

	// 以下字段仅由事件循环协程访问
	dev        hiddev.Device
	readerStop chan struct{}
	readerDone chan struct{}

	state atomic.Int32
	infoV atomic.Value // hiddev.Info
	doneC chan struct{}
	err   error // 终止原因，close(doneC) 之前写入

	framesIn      atomic.Uint64
	framesOut     atomic.Uint64
	bytesIn       atomic.Uint64
	bytesOut      atomic.Uint64
	decodeErrors  atomic.Uint64
	framesDropped atomic.Uint64
}

// Start 创建连接并异步建连
// 同步调用 Handler.Init，失败时返回 ErrHandlerInit 且不再有任何回调；
// 设备打开在事件循环中进行，其结果通过 Done/Err 观察。
func Start(cfg Config, h Handler) (*Conn, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Open == nil {
		cfg.Open = hiddev.Open
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if h == nil {
		h = NopHandler{}
	}

	if err := h.Init(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandlerInit, err)
	}

	c := &Conn{
		id:    uuid.NewString(),
		cfg:   cfg,
		h:     h,
		mbox:  newMailbox(),
		doneC: make(chan struct{}),
	}
	c.log = cfg.Logger.With(zap.String("conn_id", c.id), zap.String("device", cfg.DevicePath))
	if cfg.FrameRate > 0 {
		burst := cfg.FrameBurst
		if burst <= 0 {
			burst = int(cfg.FrameRate)
			if burst < 1 {
				burst = 1
			}
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.FrameRate), burst)
	}
	c.setState(StateInit)

	go c.run()
	return c, nil
}

// Send 异步发送一帧载荷，使用默认帧参数
// 永不阻塞调用方；写失败通过后续断连体现，不在此返回。
func (c *Conn) Send(payload []byte) {
	c.SendWith(payload, hidreport.DefaultEncodeOptions())
}

// SendWith 以指定帧参数异步发送一帧载荷
func (c *Conn) SendWith(payload []byte, opts hidreport.EncodeOptions) {
	// 复制一份，避免调用方复用底层切片
	dup := make([]byte, len(payload))
	copy(dup, payload)
	if !c.mbox.put(message{kind: msgSend, payload: dup, opts: opts}) {
		c.log.Debug("send after termination dropped", zap.Int("payload_len", len(payload)))
	}
}

// Stop 请求终止连接并立即返回，终止完成以 Done 通道为准
func (c *Conn) Stop() {
	c.mbox.put(message{kind: msgStop})
}

// Done 返回终止通知通道
func (c *Conn) Done() <-chan struct{} { return c.doneC }

// Err 返回终止原因；连接未终止或正常停止时为 nil
func (c *Conn) Err() error {
	select {
	case <-c.doneC:
		return c.err
	default:
		return nil
	}
}

// State 返回当前连接状态
func (c *Conn) State() State { return State(c.state.Load()) }

// ID 返回连接标识
func (c *Conn) ID() string { return c.id }

// Info 返回设备标识信息，设备打开前为零值
func (c *Conn) Info() hiddev.Info {
	if v := c.infoV.Load(); v != nil {
		return v.(hiddev.Info)
	}
	return hiddev.Info{}
}

// Stats 返回累计统计
func (c *Conn) Stats() Stats {
	return Stats{
		FramesIn:      c.framesIn.Load(),
		FramesOut:     c.framesOut.Load(),
		BytesIn:       c.bytesIn.Load(),
		BytesOut:      c.bytesOut.Load(),
		DecodeErrors:  c.decodeErrors.Load(),
		FramesDropped: c.framesDropped.Load(),
		Mailbox:       c.mbox.size(),
	}
}

func (c *Conn) setState(s State) {
	c.state.Store(int32(s))
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.StateGauge.Set(float64(s))
	}
}

// run 事件循环：建连后逐条处理信箱消息，任何退出路径都经由 finish 收尾
func (c *Conn) run() {
	c.setState(StateConnecting)
	dev, info, err := c.cfg.Open(c.cfg.DevicePath)
	if err != nil {
		// 设备从未就绪，不走断连流程
		c.log.Error("device open failed", zap.Error(err))
		c.finish(fmt.Errorf("%w: %v", ErrDeviceOpen, err))
		return
	}
	c.dev = dev
	c.infoV.Store(info)
	c.log.Info("device opened",
		zap.String("name", info.Name),
		zap.Uint16("vendor_id", info.VendorID),
		zap.Uint16("product_id", info.ProductID))

	stopped, reason, werr := c.applyAction(c.h.HandleConnected(info))
	if werr != nil {
		c.disconnect(werr)
		return
	}
	if stopped {
		c.finish(reason)
		return
	}

	c.startReader()
	c.setState(StateConnected)
	c.log.Info("connected")

	for {
		msg, ok := c.mbox.take()
		if !ok {
			return
		}
		switch msg.kind {
		case msgSend:
			if err := c.writeFrame(msg.payload, msg.opts); err != nil {
				c.disconnect(err)
				return
			}
		case msgFrameData:
			stopped, reason, werr := c.handleFrameData(msg.raw)
			if werr != nil {
				c.disconnect(werr)
				return
			}
			if stopped {
				c.finish(reason)
				return
			}
		case msgReaderFailure:
			c.disconnect(msg.err)
			return
		case msgStop:
			c.finish(nil)
			return
		}
	}
}

// handleFrameData 解码一块原始数据并分发给处理器
func (c *Conn) handleFrameData(raw []byte) (stopped bool, reason error, writeErr error) {
	c.bytesIn.Add(uint64(len(raw)))
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.BytesIn.Add(float64(len(raw)))
	}

	m, err := hidreport.Decode(raw)
	if err != nil {
		// 解码失败仅丢弃该报告，连接保持
		c.decodeErrors.Add(1)
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.DecodeErrors.Inc()
		}
		c.log.Warn("frame decode failed",
			zap.Error(err),
			zap.String("raw", hex.EncodeToString(raw)))
		return false, nil, nil
	}

	if c.limiter != nil && !c.limiter.Allow() {
		c.framesDropped.Add(1)
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.FramesDropped.Inc()
		}
		c.log.Warn("inbound frame dropped by rate limit",
			zap.String("protocol", m.Protocol.String()))
		return false, nil, nil
	}

	c.framesIn.Add(1)
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.FramesIn.Inc()
	}
	c.log.Debug("frame received",
		zap.String("protocol", m.Protocol.String()),
		zap.String("emi", hidreport.EMIName(m.EMIID)),
		zap.Uint8("sequence", m.Sequence),
		zap.Int("payload_len", len(m.Payload)))

	return c.applyAction(c.h.HandleFrame(m.Payload))
}

// applyAction 执行回调返回的动作
func (c *Conn) applyAction(a Action) (stopped bool, reason error, writeErr error) {
	switch a.kind {
	case actionReply:
		opts := a.opts
		if !a.hasOpts {
			opts = hidreport.DefaultEncodeOptions()
		}
		if err := c.writeFrame(a.payload, opts); err != nil {
			return false, nil, err
		}
	case actionStop:
		return true, a.reason, nil
	}
	return false, nil, nil
}

// writeFrame 编码并写入设备，写失败返回 ErrDeviceWrite
func (c *Conn) writeFrame(payload []byte, opts hidreport.EncodeOptions) error {
	raw := hidreport.Encode(payload, opts)
	n, err := c.dev.Write(raw)
	if err != nil {
		c.log.Error("device write failed", zap.Error(err), zap.Int("frame_len", len(raw)))
		return fmt.Errorf("%w: %v", ErrDeviceWrite, err)
	}
	c.framesOut.Add(1)
	c.bytesOut.Add(uint64(n))
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.FramesOut.Inc()
		c.cfg.Metrics.BytesOut.Add(float64(n))
	}
	return nil
}

// disconnect 断连流程：关设备 -> 结束读取任务 -> HandleDisconnected -> 终止
func (c *Conn) disconnect(reason error) {
	c.setState(StateDisconnecting)
	c.log.Warn("connection lost", zap.Error(reason))
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.Disconnects.Inc()
	}

	c.signalReaderStop()
	c.closeDevice()
	c.awaitReader()

	a := c.h.HandleDisconnected(reason)
	// Stop 动作可替换终止原因；设备已关闭，Reply 载荷只能丢弃
	switch a.kind {
	case actionStop:
		reason = a.reason
	case actionReply:
		c.log.Debug("reply ignored during disconnect", zap.Int("payload_len", len(a.payload)))
	}
	c.finish(reason)
}

// finish 终止收尾：强制结束读取任务、关闭设备、回调 Terminate
// 初始化成功后的每条终止路径都恰好执行一次。
func (c *Conn) finish(reason error) {
	c.setState(StateTerminated)
	c.signalReaderStop()
	c.closeDevice()
	c.awaitReader()
	c.mbox.close()

	c.h.Terminate(reason)

	c.err = reason
	if reason != nil {
		c.log.Info("terminated", zap.Error(reason))
	} else {
		c.log.Info("terminated")
	}
	close(c.doneC)
}

func (c *Conn) startReader() {
	c.readerStop = make(chan struct{})
	c.readerDone = make(chan struct{})
	go c.readLoop(c.dev, c.cfg.ChunkSize, c.readerStop, c.readerDone)
}

func (c *Conn) signalReaderStop() {
	if c.readerStop == nil {
		return
	}
	select {
	case <-c.readerStop:
	default:
		close(c.readerStop)
	}
}

func (c *Conn) awaitReader() {
	if c.readerDone == nil {
		return
	}
	<-c.readerDone
	c.readerDone = nil
}

// closeDevice 关闭设备句柄，同时解除读取任务的阻塞读
func (c *Conn) closeDevice() {
	if c.dev == nil {
		return
	}
	if err := c.dev.Close(); err != nil {
		c.log.Warn("device close failed", zap.Error(err))
	}
	c.dev = nil
}

// readLoop 读取任务：循环阻塞读设备，把数据块与故障转发回事件循环
// 只读不写，不持有任何连接状态。
func (c *Conn) readLoop(dev hiddev.Device, chunk int, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			c.mbox.put(message{kind: msgReaderFailure, err: fmt.Errorf("%w: %v", ErrReaderDied, r)})
		}
	}()

	buf := make([]byte, chunk)
	for {
		n, err := dev.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			c.mbox.put(message{kind: msgFrameData, raw: data})
		}
		if err != nil {
			select {
			case <-stop:
				// 主动停止，不再上报
			default:
				if errors.Is(err, io.EOF) {
					c.mbox.put(message{kind: msgReaderFailure, err: ErrEndOfStream})
				} else {
					c.mbox.put(message{kind: msgReaderFailure, err: fmt.Errorf("%w: %v", ErrReaderIO, err)})
				}
			}
			return
		}
		select {
		case <-stop:
			return
		default:
		}
	}
}
