package connection

import "github.com/taoyao-code/knx-usb/pkg/protocol/hidreport"

type actionKind int

const (
	actionContinue actionKind = iota
	actionReply
	actionStop
)

// Action 回调的返回动作，通过本包的构造函数创建
type Action struct {
	kind    actionKind
	payload []byte
	opts    hidreport.EncodeOptions
	hasOpts bool
	reason  error
}

// Continue 继续处理后续事件
func Continue() Action {
	return Action{kind: actionContinue}
}

// Reply 以默认帧参数向设备回写一帧载荷，然后继续
func Reply(payload []byte) Action {
	return Action{kind: actionReply, payload: payload}
}

// ReplyWith 以指定帧参数向设备回写一帧载荷，然后继续
func ReplyWith(payload []byte, opts hidreport.EncodeOptions) Action {
	return Action{kind: actionReply, payload: payload, opts: opts, hasOpts: true}
}

// Stop 开始终止连接，reason 为 nil 表示正常停止
func Stop(reason error) Action {
	return Action{kind: actionStop, reason: reason}
}
