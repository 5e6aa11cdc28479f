package connection

import "sync"

// mailbox 无上限的 FIFO 信箱
// 投递永不阻塞调用方，事件循环按到达顺序逐条取出。
type mailbox struct {
	mu     sync.Mutex
	queue  []message
	notify chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

// put 投递一条消息，信箱已关闭时返回 false
func (m *mailbox) put(msg message) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

// take 取出下一条消息，队列为空时阻塞；信箱关闭后返回 false
func (m *mailbox) take() (message, bool) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			msg := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return msg, true
		}
		if m.closed {
			m.mu.Unlock()
			return message{}, false
		}
		m.mu.Unlock()
		<-m.notify
	}
}

// close 关闭信箱并丢弃未取出的消息，唤醒阻塞中的 take
func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.queue = nil
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// size 当前积压的消息数
func (m *mailbox) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
