package health

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/process"
)

// InspectProcess reports whether pid exists, whether it is a zombie, and its
// current RSS in megabytes. gopsutil handles the cross-platform liveness and
// memory query; zombie detection falls back to a Linux-only /proc read since
// gopsutil does not surface the process state letter directly there.
func InspectProcess(ctx context.Context, pid int) (exists bool, zombie bool, rssMB float64) {
	if pid <= 0 {
		return false, false, 0
	}

	running, err := process.PidExistsWithContext(ctx, int32(pid))
	if err != nil || !running {
		return false, false, 0
	}

	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return true, false, 0
	}

	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		rssMB = float64(mem.RSS) / (1024 * 1024)
	}

	zombie = isZombieLinux(pid)
	return true, zombie, rssMB
}

// isZombieLinux is only meaningful on Linux; elsewhere it always reports
// false since there is no equivalent process-state letter to read.
func isZombieLinux(pid int) bool {
	if runtime.GOOS != "linux" {
		return false
	}
	return readProcStateIsZombie(pid)
}
