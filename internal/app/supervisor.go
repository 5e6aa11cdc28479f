package app

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/knx-usb/internal/config"
	appmetrics "github.com/taoyao-code/knx-usb/internal/metrics"
	"github.com/taoyao-code/knx-usb/pkg/connection"
	"github.com/taoyao-code/knx-usb/pkg/hiddev"
)

// Supervisor 维护设备连接并按配置自动重连
// 同一时刻最多持有一条连接，终止后按 reconnectDelay 重建。
type Supervisor struct {
	cfg   cfgpkg.DeviceConfig
	h     connection.Handler
	bind  func(*connection.Conn)
	connm *connection.Metrics
	appm  *appmetrics.AppMetrics
	log   *zap.Logger

	open hiddev.OpenFunc // 测试注入用，nil 走默认

	cur      atomic.Pointer[connection.Conn]
	stopC    chan struct{}
	doneC    chan struct{}
	stopOnce sync.Once
}

// NewSupervisor 创建连接监督器
// bind 在每次新连接建立后回调，可为 nil；connm/appm 可为 nil。
func NewSupervisor(
	cfg cfgpkg.DeviceConfig,
	h connection.Handler,
	bind func(*connection.Conn),
	connm *connection.Metrics,
	appm *appmetrics.AppMetrics,
	log *zap.Logger,
) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{
		cfg:   cfg,
		h:     h,
		bind:  bind,
		connm: connm,
		appm:  appm,
		log:   log,
		stopC: make(chan struct{}),
		doneC: make(chan struct{}),
	}
}

// Start 启动监督循环
func (s *Supervisor) Start() {
	go s.loop()
}

// Current 返回当前连接，重连间隙为 nil
func (s *Supervisor) Current() *connection.Conn {
	return s.cur.Load()
}

// Done 监督循环退出后关闭，包括重试次数用尽的情形
func (s *Supervisor) Done() <-chan struct{} {
	return s.doneC
}

// Ready 当前连接是否处于 connected 状态
func (s *Supervisor) Ready() bool {
	c := s.cur.Load()
	return c != nil && c.State() == connection.StateConnected
}

// Stop 终止当前连接并停止监督循环，阻塞至循环退出
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() { close(s.stopC) })
	if c := s.cur.Load(); c != nil {
		c.Stop()
	}
	<-s.doneC
}

func (s *Supervisor) loop() {
	defer close(s.doneC)

	failures := 0
	for {
		select {
		case <-s.stopC:
			return
		default:
		}

		conn, err := connection.Start(connection.Config{
			DevicePath: s.cfg.Path,
			ChunkSize:  s.cfg.ChunkSize,
			Open:       s.open,
			Logger:     s.log,
			Metrics:    s.connm,
			FrameRate:  s.cfg.FrameRate,
			FrameBurst: s.cfg.FrameBurst,
		}, s.h)
		if err != nil {
			// Init 失败属于配置级错误，重试无意义
			s.log.Error("start connection failed", zap.Error(err))
			return
		}
		s.cur.Store(conn)
		if s.bind != nil {
			s.bind(conn)
		}

		select {
		case <-conn.Done():
		case <-s.stopC:
			conn.Stop()
			<-conn.Done()
			return
		}

		// 设备曾成功打开则重置失败计数
		if conn.Info() != (hiddev.Info{}) {
			failures = 0
		}

		termErr := conn.Err()
		s.cur.Store(nil)
		if termErr == nil {
			s.log.Info("connection stopped")
			return
		}
		s.log.Warn("connection terminated", zap.Error(termErr))

		if !s.cfg.Reconnect {
			s.log.Info("reconnect disabled, supervisor exiting")
			return
		}
		failures++
		if s.cfg.MaxRetries > 0 && failures >= s.cfg.MaxRetries {
			s.log.Error("reconnect limit reached", zap.Int("failures", failures))
			return
		}
		if s.appm != nil {
			s.appm.ReconnectsTotal.Inc()
		}
		s.log.Info("reconnecting", zap.Duration("delay", s.cfg.ReconnectDelay))

		select {
		case <-time.After(s.cfg.ReconnectDelay):
		case <-s.stopC:
			return
		}
	}
}
