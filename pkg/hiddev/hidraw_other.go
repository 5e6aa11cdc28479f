//go:build !linux

package hiddev

// Open 仅在 linux 上受支持
func Open(path string) (Device, Info, error) {
	return nil, Info{}, ErrUnsupportedPlatform
}
