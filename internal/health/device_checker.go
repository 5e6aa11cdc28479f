package health

import (
	"context"
	"time"

	"github.com/taoyao-code/knx-usb/pkg/connection"
)

// DeviceChecker KNX USB 设备连接健康检查器
type DeviceChecker struct {
	conn func() *connection.Conn
}

// NewDeviceChecker 创建设备连接健康检查器，conn 返回当前连接（可能为 nil）
func NewDeviceChecker(conn func() *connection.Conn) *DeviceChecker {
	return &DeviceChecker{conn: conn}
}

// Name 返回检查器名称
func (c *DeviceChecker) Name() string {
	return "device"
}

// Check 执行健康检查
func (c *DeviceChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	conn := c.conn()
	if conn == nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "no connection",
			Latency: time.Since(start),
		}
	}

	state := conn.State()
	stats := conn.Stats()

	details := map[string]interface{}{
		"conn_id":    conn.ID(),
		"state":      state.String(),
		"frames_in":  stats.FramesIn,
		"frames_out": stats.FramesOut,
		"mailbox":    stats.Mailbox,
	}
	if info := conn.Info(); info.Path != "" {
		details["device"] = info.Path
	}

	switch state {
	case connection.StateConnected:
		status := StatusHealthy
		message := "ok"

		// 解码错误占比过高说明链路质量劣化
		if stats.DecodeErrors > 0 && stats.DecodeErrors*10 > stats.FramesIn {
			status = StatusDegraded
			message = "high decode error rate"
			details["decode_errors"] = stats.DecodeErrors
		}

		return CheckResult{
			Status:  status,
			Message: message,
			Details: details,
			Latency: time.Since(start),
		}

	case connection.StateInit, connection.StateConnecting:
		return CheckResult{
			Status:  StatusDegraded,
			Message: "connecting",
			Details: details,
			Latency: time.Since(start),
		}

	default:
		// 断开或已终止，等待监督循环重建连接
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "connection down",
			Details: details,
			Latency: time.Since(start),
		}
	}
}
