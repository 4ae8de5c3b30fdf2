package pool

import (
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// ClampCapacity lowers a requested pool capacity to what available
// memory can support, assuming perHandleBytes per browser handle. The
// result is never below 1 and never above the request. A zero
// perHandleBytes or a failed memory probe leaves the request unchanged.
func ClampCapacity(requested int, perHandleBytes uint64, logger *zap.Logger) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	if requested < 1 {
		requested = 1
	}
	if perHandleBytes == 0 {
		return requested
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		logger.Warn("memory probe failed, keeping requested pool capacity", zap.Error(err))
		return requested
	}
	fit := int(vm.Available / perHandleBytes)
	if fit < 1 {
		fit = 1
	}
	if fit < requested {
		logger.Warn("clamping pool capacity to available memory",
			zap.Int("requested", requested),
			zap.Int("clamped", fit),
			zap.Uint64("available_bytes", vm.Available),
		)
		return fit
	}
	return requested
}
