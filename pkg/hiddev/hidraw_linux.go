//go:build linux

package hiddev

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// rawDevice 独占打开的 hidraw 字符设备
type rawDevice struct {
	f *os.File
}

// Open 以读写方式独占打开 hidraw 字符设备，并通过 ioctl 读取设备标识。
// 已被其他进程锁定的设备返回 ErrDeviceBusy。
func Open(path string) (Device, Info, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, Info{}, fmt.Errorf("open %s: %w", path, err)
	}

	info := Info{Path: path}

	sc, err := f.SyscallConn()
	if err != nil {
		f.Close()
		return nil, Info{}, fmt.Errorf("syscall conn %s: %w", path, err)
	}
	var lockErr error
	ctlErr := sc.Control(func(fd uintptr) {
		if err := unix.Flock(int(fd), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			lockErr = ErrDeviceBusy
			return
		}
		// 设备标识尽力而为，部分驱动不支持这些 ioctl
		if raw, err := unix.IoctlHIDGetRawInfo(int(fd)); err == nil {
			info.VendorID = uint16(raw.Vendor)
			info.ProductID = uint16(raw.Product)
		}
		if name, err := unix.IoctlHIDGetRawName(int(fd)); err == nil {
			info.Name = name
		}
	})
	if ctlErr != nil {
		f.Close()
		return nil, Info{}, fmt.Errorf("ioctl %s: %w", path, ctlErr)
	}
	if lockErr != nil {
		f.Close()
		return nil, Info{}, fmt.Errorf("lock %s: %w", path, lockErr)
	}

	return &rawDevice{f: f}, info, nil
}

func (d *rawDevice) Read(p []byte) (int, error) {
	return d.f.Read(p)
}

func (d *rawDevice) Write(p []byte) (int, error) {
	return d.f.Write(p)
}

// Close 关闭设备并释放独占锁，同时会唤醒阻塞中的 Read
func (d *rawDevice) Close() error {
	return d.f.Close()
}
