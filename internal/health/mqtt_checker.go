package health

import (
	"context"
	"time"

	"github.com/taoyao-code/knx-usb/internal/mqtt"
)

// MQTTChecker MQTT 桥接健康检查器
type MQTTChecker struct {
	client *mqtt.Client
}

// NewMQTTChecker 创建MQTT健康检查器
func NewMQTTChecker(client *mqtt.Client) *MQTTChecker {
	return &MQTTChecker{client: client}
}

// Name 返回检查器名称
func (c *MQTTChecker) Name() string {
	return "mqtt"
}

// Check 执行健康检查
func (c *MQTTChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	if !c.client.Running() {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "client not started",
			Latency: time.Since(start),
		}
	}

	// 自动重连开启，掉线视为降级而非不可用
	if !c.client.Connected() {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "broker disconnected, reconnecting",
			Latency: time.Since(start),
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Latency: time.Since(start),
	}
}
