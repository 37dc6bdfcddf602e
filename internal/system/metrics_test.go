package system_test

import (
	"testing"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	m, err := system.Collect()
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Positive(t, m.Goroutines)
	assert.GreaterOrEqual(t, m.CPUUsagePercent, 0.0)
	assert.LessOrEqual(t, m.MemoryUsagePercent, 100.0)
}

func TestToMap(t *testing.T) {
	m := &system.Metrics{
		CPUUsagePercent:  12.5,
		MemoryUsedBytes:  1024,
		DiskUsagePercent: 40,
		Goroutines:       7,
	}

	out := m.ToMap()
	assert.Equal(t, 12.5, out["system.cpu_usage_percent"])
	assert.Equal(t, 1024.0, out["system.memory_used_bytes"])
	assert.Equal(t, 40.0, out["system.disk_usage_percent"])
	assert.Equal(t, 7.0, out["process.goroutines"])
	assert.Len(t, out, 9)
}
