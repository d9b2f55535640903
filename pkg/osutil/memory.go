package osutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/pbnjay/memory"
)

// This is the default value for cgroup v1's limit_in_bytes. It indicates the
// memory is not restricted.
const unrestrictedMemoryLimit = 9223372036854771712

// Checked in order, cgroup v2 first
var cgroupMemoryLimitLocations = []string{
	"/sys/fs/cgroup/memory.max",
	"/sys/fs/cgroup/memory/memory.limit_in_bytes",
}

// GetTotalMemory returns the total available memory size. The call is
// container-aware.
func GetTotalMemory() uint64 {
	return totalMemory(memory.TotalMemory(), cgroupMemoryLimitLocations)
}

func totalMemory(physical uint64, limitLocations []string) uint64 {
	for _, location := range limitLocations {
		limit, ok := readMemoryLimit(location)
		if ok && limit < physical {
			return limit
		}
	}
	return physical
}

func readMemoryLimit(location string) (uint64, bool) {
	raw, err := os.ReadFile(location)
	if err != nil {
		return 0, false
	}

	value := strings.TrimSpace(string(raw))
	if value == "max" {
		return 0, false
	}

	limit, err := strconv.ParseUint(value, 10, 64)
	if err != nil || limit == 0 || limit == unrestrictedMemoryLimit {
		return 0, false
	}
	return limit, true
}
