package api

import (
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/knx-usb/internal/monitor"
	"github.com/taoyao-code/knx-usb/pkg/connection"
	"github.com/taoyao-code/knx-usb/pkg/protocol/hidreport"
)

// Handler 连接状态查询与发帧 API 处理器
type Handler struct {
	conn   func() *connection.Conn
	mon    func() monitor.Snapshot
	logger *zap.Logger
}

// NewHandler 创建 API 处理器
// conn 返回当前活动连接（可能为 nil），mon 为 nil 时状态应答不含监视信息。
func NewHandler(conn func() *connection.Conn, mon func() monitor.Snapshot, logger *zap.Logger) *Handler {
	return &Handler{conn: conn, mon: mon, logger: logger}
}

// Status 查询当前连接状态与累计统计
func (h *Handler) Status(c *gin.Context) {
	conn := h.conn()
	if conn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no active connection"})
		return
	}
	info := conn.Info()
	resp := gin.H{
		"id":    conn.ID(),
		"state": conn.State().String(),
		"device": gin.H{
			"path":       info.Path,
			"vendor_id":  fmt.Sprintf("%04x", info.VendorID),
			"product_id": fmt.Sprintf("%04x", info.ProductID),
			"name":       info.Name,
		},
		"stats": conn.Stats(),
	}
	if h.mon != nil {
		resp["monitor"] = h.mon()
	}
	c.JSON(http.StatusOK, resp)
}

// SendRequest 发帧请求体，payload 为十六进制编码的 EMI 报文
type SendRequest struct {
	Payload  string `json:"payload" binding:"required"`
	Sequence *int   `json:"sequence"`
}

// Send 将请求载荷封帧后写入总线设备
func (h *Handler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}
	payload, err := hex.DecodeString(req.Payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload must be hex encoded"})
		return
	}
	if len(payload) > hidreport.MaxPayloadLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("payload exceeds %d bytes", hidreport.MaxPayloadLength)})
		return
	}

	conn := h.conn()
	if conn == nil || conn.State() != connection.StateConnected {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "device not connected"})
		return
	}

	if req.Sequence != nil {
		if *req.Sequence < 0 || *req.Sequence > 15 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sequence must be between 0 and 15"})
			return
		}
		opts := hidreport.DefaultEncodeOptions()
		opts.Sequence = byte(*req.Sequence)
		conn.SendWith(payload, opts)
	} else {
		conn.Send(payload)
	}

	h.logger.Debug("frame queued via api", zap.Int("payload_len", len(payload)))
	c.JSON(http.StatusAccepted, gin.H{"queued": true, "payload_len": len(payload)})
}
