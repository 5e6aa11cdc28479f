package hiddev

import (
	"errors"
	"io"
)

// Device 驱动 HID 字符设备所需的最小接口
// Read 为阻塞读；Read 与 Write 相互独立，可并发调用。
type Device interface {
	io.ReadWriter
	io.Closer
}

// Info 已打开设备的标识信息
type Info struct {
	Path      string // 设备路径
	VendorID  uint16 // 厂商标识，未知时为 0
	ProductID uint16 // 产品标识，未知时为 0
	Name      string // 设备名称，未知时为空
}

// OpenFunc 设备打开函数，作为注入点便于测试替换真实设备
type OpenFunc func(path string) (Device, Info, error)

var (
	ErrUnsupportedPlatform = errors.New("hidraw device access requires linux")
	ErrDeviceBusy          = errors.New("device busy")
)
