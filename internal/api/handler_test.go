package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/knx-usb/internal/monitor"
	"github.com/taoyao-code/knx-usb/pkg/connection"
	"github.com/taoyao-code/knx-usb/pkg/hiddev"
)

func newTestRouter(conn func() *connection.Conn) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, conn, nil, zap.NewNop())
	return r
}

// startMockConn 启动挂在 Mock 设备上的真实连接
func startMockConn(t *testing.T) (*connection.Conn, *hiddev.MockDevice) {
	t.Helper()
	m := hiddev.NewMockDevice()
	cfg := connection.Config{
		DevicePath: "/dev/hidraw9",
		Open:       m.Opener(hiddev.Info{VendorID: 0x0E77, ProductID: 0x0112, Name: "bus interface"}),
	}
	conn, err := connection.Start(cfg, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return conn.State() == connection.StateConnected },
		time.Second, 5*time.Millisecond, "连接未进入 connected 状态")
	t.Cleanup(func() {
		conn.Stop()
		<-conn.Done()
	})
	return conn, m
}

func TestStatus_NoConnection(t *testing.T) {
	router := newTestRouter(func() *connection.Conn { return nil })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "no active connection", resp["error"])
}

func TestStatus_Connected(t *testing.T) {
	conn, _ := startMockConn(t)
	router := newTestRouter(func() *connection.Conn { return conn })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ID     string `json:"id"`
		State  string `json:"state"`
		Device struct {
			Path      string `json:"path"`
			VendorID  string `json:"vendor_id"`
			ProductID string `json:"product_id"`
			Name      string `json:"name"`
		} `json:"device"`
		Stats connection.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, conn.ID(), resp.ID)
	assert.Equal(t, "connected", resp.State)
	assert.Equal(t, "/dev/hidraw9", resp.Device.Path)
	assert.Equal(t, "0e77", resp.Device.VendorID)
	assert.Equal(t, "0112", resp.Device.ProductID)
	assert.Equal(t, "bus interface", resp.Device.Name)
}

func TestStatus_WithMonitorSnapshot(t *testing.T) {
	conn, _ := startMockConn(t)
	mon := monitor.NewHandler(nil, 0, nil, nil, zap.NewNop())
	mon.HandleFrame([]byte{0x29, 0x00})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, func() *connection.Conn { return conn }, mon.Snapshot, zap.NewNop())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Monitor monitor.Snapshot `json:"monitor"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.Monitor.Frames)
	assert.Equal(t, "L_Data.ind", resp.Monitor.LastCode)
}

func TestSend_WritesFrame(t *testing.T) {
	conn, m := startMockConn(t)
	router := newTestRouter(func() *connection.Conn { return conn })

	body, _ := json.Marshal(SendRequest{Payload: "2900bce00001abcc"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/send", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool { return len(m.Writes()) == 1 },
		time.Second, 5*time.Millisecond, "帧未写入设备")
	frame := m.Writes()[0]
	assert.Equal(t, byte(0x01), frame[0])
	assert.Equal(t, byte(0x13), frame[1])
	assert.Equal(t, 22, len(frame))
}

func TestSend_CustomSequence(t *testing.T) {
	conn, m := startMockConn(t)
	router := newTestRouter(func() *connection.Conn { return conn })

	seq := 5
	body, _ := json.Marshal(SendRequest{Payload: "2900bce00001abcc", Sequence: &seq})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/send", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool { return len(m.Writes()) == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, byte(0x53), m.Writes()[0][1], "packet_info 应为 seq=5, all_in_one")
}

func TestSend_Validation(t *testing.T) {
	conn, _ := startMockConn(t)
	router := newTestRouter(func() *connection.Conn { return conn })

	tests := []struct {
		name string
		body string
		code int
	}{
		{"缺少payload", `{}`, http.StatusBadRequest},
		{"非法hex", `{"payload":"zz"}`, http.StatusBadRequest},
		{"序列号越界", `{"payload":"29","sequence":16}`, http.StatusBadRequest},
		{"载荷超长", `{"payload":"` + bytesHex(245) + `"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/send", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestSend_NotConnected(t *testing.T) {
	router := newTestRouter(func() *connection.Conn { return nil })

	body := []byte(`{"payload":"2900"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/send", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func bytesHex(n int) string {
	b := make([]byte, 2*n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}
