package hiddev

import (
	"io"
	"sync"
)

// MockDevice 可编程的内存设备，用于连接层测试
// Read 阻塞直到有脚本数据、注入错误或设备被关闭，贴近真实字符设备的行为。
type MockDevice struct {
	mu       sync.Mutex
	readCond *sync.Cond

	pending  [][]byte // 待返回的读块
	readErr  error    // 脚本数据耗尽后 Read 返回的错误
	writeErr error
	closeErr error
	writes   [][]byte
	closed   bool
	closeN   int
}

func NewMockDevice() *MockDevice {
	m := &MockDevice{}
	m.readCond = sync.NewCond(&m.mu)
	return m
}

// Opener 返回一个始终交出本设备的 OpenFunc
func (m *MockDevice) Opener(info Info) OpenFunc {
	return func(path string) (Device, Info, error) {
		if info.Path == "" {
			info.Path = path
		}
		return m, info, nil
	}
}

// PushRead 追加一块读数据并唤醒阻塞中的 Read
func (m *MockDevice) PushRead(p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, len(p))
	copy(b, p)
	m.pending = append(m.pending, b)
	m.readCond.Broadcast()
}

// FailRead 令脚本数据耗尽后的 Read 返回 err
func (m *MockDevice) FailRead(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
	m.readCond.Broadcast()
}

// FailWrite 令后续 Write 返回 err
func (m *MockDevice) FailWrite(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *MockDevice) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		if len(m.pending) > 0 {
			n := copy(p, m.pending[0])
			if n < len(m.pending[0]) {
				m.pending[0] = m.pending[0][n:]
			} else {
				m.pending = m.pending[1:]
			}
			return n, nil
		}
		if m.readErr != nil {
			return 0, m.readErr
		}
		if m.closed {
			return 0, io.ErrClosedPipe
		}
		m.readCond.Wait()
	}
}

func (m *MockDevice) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	b := make([]byte, len(p))
	copy(b, p)
	m.writes = append(m.writes, b)
	return len(p), nil
}

func (m *MockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeN++
	m.closed = true
	m.readCond.Broadcast()
	return m.closeErr
}

// Writes 返回按序捕获的每次写入
func (m *MockDevice) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// Closed 返回设备是否已关闭
func (m *MockDevice) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CloseCount 返回 Close 被调用的次数
func (m *MockDevice) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeN
}
