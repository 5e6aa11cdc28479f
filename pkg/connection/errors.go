package connection

import "errors"

// 生命周期错误，均对连接致命，调用方用 errors.Is 判别
var (
	ErrHandlerInit = errors.New("handler init failed")
	ErrDeviceOpen  = errors.New("device open failed")
	ErrDeviceWrite = errors.New("device write failed")
	ErrReaderIO    = errors.New("reader io error")
	ErrReaderDied  = errors.New("reader task died")
	ErrEndOfStream = errors.New("end of stream")
)
