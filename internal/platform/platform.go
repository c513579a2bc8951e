// Package platform reports host CPU capabilities and applies the
// best-effort CPU pin requested by the -c flag. Neither is required for
// correct operation; a failed pin is logged and ignored.
package platform

import "github.com/klauspost/cpuid/v2"

// Capabilities summarizes what the host CPU offers the DSP inner loops.
type Capabilities struct {
	BrandName   string
	PhysicalCPU int
	LogicalCPU  int
	HasAVX2     bool
	HasFMA3     bool
	HasNEON     bool
	CanPinCPU   bool
}

// Detect queries the host CPU once.
func Detect() Capabilities {
	return Capabilities{
		BrandName:   cpuid.CPU.BrandName,
		PhysicalCPU: cpuid.CPU.PhysicalCores,
		LogicalCPU:  cpuid.CPU.LogicalCores,
		HasAVX2:     cpuid.CPU.Supports(cpuid.AVX2),
		HasFMA3:     cpuid.CPU.Supports(cpuid.FMA3),
		HasNEON:     cpuid.CPU.Supports(cpuid.ASIMD),
		CanPinCPU:   canPinCPU,
	}
}
