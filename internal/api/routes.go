package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/knx-usb/internal/monitor"
	"github.com/taoyao-code/knx-usb/pkg/connection"
)

// RegisterRoutes 注册连接状态与发帧路由
func RegisterRoutes(r *gin.Engine, conn func() *connection.Conn, mon func() monitor.Snapshot, logger *zap.Logger) {
	if r == nil || conn == nil {
		return
	}

	handler := NewHandler(conn, mon, logger)

	v1 := r.Group("/api/v1")
	v1.GET("/status", handler.Status)
	v1.POST("/send", handler.Send)

	logger.Info("api routes registered", zap.Int("endpoints", 2))
}
