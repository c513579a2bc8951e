//go:build !linux

package platform

import "fmt"

const canPinCPU = false

// PinToCPU is unavailable on this platform; the pin request is reported
// as unsupported rather than silently dropped.
func PinToCPU(cpu int) error {
	if cpu < 0 {
		return nil
	}
	return fmt.Errorf("platform: CPU pinning not supported on this OS")
}
