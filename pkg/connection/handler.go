package connection

import "github.com/taoyao-code/knx-usb/pkg/hiddev"

// Handler 连接事件的业务扩展点，由嵌入方实现
// 所有回调由连接事件循环串行调用，实现内部无需加锁；
// 业务状态保存在实现结构体自身。
type Handler interface {
	// Init 在任何设备 I/O 之前调用一次，返回错误则连接不会建立，
	// 且之后不会再有任何回调（包括 Terminate）。
	Init(cfg Config) error

	// HandleConnected 设备打开成功后调用一次
	HandleConnected(info hiddev.Info) Action

	// HandleFrame 每成功解码一条报告调用一次，参数为应用载荷
	HandleFrame(payload []byte) Action

	// HandleDisconnected 连接丢失时调用一次，发生在 Terminate 之前；
	// 返回 Stop 可替换最终的终止原因，任何返回值都不会恢复连接。
	HandleDisconnected(reason error) Action

	// Terminate 终止前的最后一步，初始化成功后的任何终止路径都恰好调用一次
	Terminate(reason error)
}
