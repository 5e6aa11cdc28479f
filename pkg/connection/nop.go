package connection

import "github.com/taoyao-code/knx-usb/pkg/hiddev"

// NopHandler 缺省处理器：接受所有事件且不做任何事
// 可内嵌到业务处理器中，按需覆盖单个回调。
type NopHandler struct{}

func (NopHandler) Init(Config) error { return nil }

func (NopHandler) HandleConnected(hiddev.Info) Action { return Continue() }

func (NopHandler) HandleFrame([]byte) Action { return Continue() }

func (NopHandler) HandleDisconnected(error) Action { return Continue() }

func (NopHandler) Terminate(error) {}
