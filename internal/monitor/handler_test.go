package monitor

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/knx-usb/pkg/connection"
	"github.com/taoyao-code/knx-usb/pkg/hiddev"
	"github.com/taoyao-code/knx-usb/pkg/protocol/hidreport"
)

type fakePublisher struct {
	mu    sync.Mutex
	codes []string
	body  [][]byte
	err   error
}

func (p *fakePublisher) PublishFrame(code string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.codes = append(p.codes, code)
	p.body = append(p.body, append([]byte(nil), body...))
	return nil
}

func (p *fakePublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.codes)
}

func TestHandleFrame_RecordsAndPublishes(t *testing.T) {
	pub := &fakePublisher{}
	h := NewHandler(nil, 0, pub, nil, zap.NewNop())

	payload, err := hex.DecodeString("2900bce00001abcc")
	require.NoError(t, err)
	h.HandleFrame(payload)

	snap := h.Snapshot()
	assert.Equal(t, uint64(1), snap.Frames)
	assert.Equal(t, "L_Data.ind", snap.LastCode)
	assert.Equal(t, "2900bce00001abcc", snap.LastPayload)
	assert.False(t, snap.LastAt.IsZero())

	require.Equal(t, 1, pub.published())
	assert.Equal(t, "L_Data.ind", pub.codes[0])

	var f Frame
	require.NoError(t, json.Unmarshal(pub.body[0], &f))
	assert.Equal(t, "L_Data.ind", f.Code)
	assert.Equal(t, "2900bce00001abcc", f.Payload)
}

func TestHandleFrame_PublishFailureKeepsRecording(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	h := NewHandler(nil, 0, pub, nil, zap.NewNop())

	h.HandleFrame([]byte{0x29, 0x00})
	h.HandleFrame([]byte{0x2E, 0x00})

	snap := h.Snapshot()
	assert.Equal(t, uint64(2), snap.Frames)
	assert.Equal(t, "L_Data.con", snap.LastCode)
	assert.Equal(t, 0, pub.published())
}

func TestHandleFrame_EmptyPayloadIgnored(t *testing.T) {
	h := NewHandler(nil, 0, nil, nil, zap.NewNop())
	h.HandleFrame(nil)
	assert.Equal(t, uint64(0), h.Snapshot().Frames)
}

// 未轮询时形如状态应答的载荷按普通帧处理
func TestBusStatusIgnoredWithoutPoll(t *testing.T) {
	h := NewHandler(nil, 0, nil, nil, zap.NewNop())

	h.HandleFrame([]byte{0x03, 0x01})

	snap := h.Snapshot()
	assert.Equal(t, uint64(1), snap.Frames)
	assert.Equal(t, "0x03", snap.LastCode)
	assert.Equal(t, busUnknown, snap.BusStatus)
}

func TestBusStatusPollRoundTrip(t *testing.T) {
	m := hiddev.NewMockDevice()
	h := NewHandler(nil, time.Hour, nil, nil, zap.NewNop())

	conn, err := connection.Start(connection.Config{
		DevicePath: "/dev/hidraw9",
		Open:       m.Opener(hiddev.Info{Name: "bus interface"}),
	}, h)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Stop()
		<-conn.Done()
	})
	h.Bind(conn)

	require.Eventually(t, func() bool { return conn.State() == connection.StateConnected },
		time.Second, 5*time.Millisecond)

	// 手动触发一次轮询
	h.poll()
	require.Eventually(t, func() bool { return len(m.Writes()) == 1 },
		time.Second, 5*time.Millisecond, "轮询帧未写入设备")
	assert.Equal(t, hidreport.EncodeFeatureGet(hidreport.FeatureBusConnectionStatus), m.Writes()[0])

	// 设备应答：总线已连接
	m.PushRead(hidreport.EncodeFeatureResponse(hidreport.FeatureBusConnectionStatus, []byte{0x01}))
	require.Eventually(t, func() bool { return h.Snapshot().BusStatus == busActive },
		time.Second, 5*time.Millisecond)

	// 状态应答不计入帧统计
	assert.Equal(t, uint64(0), h.Snapshot().Frames)

	// 再次轮询，设备应答总线断开
	h.poll()
	m.PushRead(hidreport.EncodeFeatureResponse(hidreport.FeatureBusConnectionStatus, []byte{0x00}))
	require.Eventually(t, func() bool { return h.Snapshot().BusStatus == busInactive },
		time.Second, 5*time.Millisecond)
}

func TestHandleDisconnectedResetsBusStatus(t *testing.T) {
	h := NewHandler(nil, 0, nil, nil, zap.NewNop())

	h.mu.Lock()
	h.busStatus = busActive
	h.mu.Unlock()

	h.HandleDisconnected(errors.New("reader io error"))
	assert.Equal(t, busUnknown, h.Snapshot().BusStatus)
}

func TestPollWithoutConnectionIsNoop(t *testing.T) {
	h := NewHandler(nil, time.Hour, nil, nil, zap.NewNop())
	h.poll() // 未绑定连接时不会崩溃

	h.mu.Lock()
	pending := h.pollPending
	h.mu.Unlock()
	assert.False(t, pending)
}
