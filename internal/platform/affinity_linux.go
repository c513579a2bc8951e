//go:build linux

package platform

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const canPinCPU = true

// PinToCPU restricts the calling thread's scheduling to the given CPU.
// The caller should have locked the goroutine to its OS thread first
// (runtime.LockOSThread), otherwise the pin applies to whichever thread
// happens to run the call.
func PinToCPU(cpu int) error {
	if cpu < 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("platform: pin to CPU %d: %w", cpu, err)
	}
	return nil
}
