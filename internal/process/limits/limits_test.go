package limits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelperPreset(t *testing.T) {
	d := Helper().Describe()
	assert.Equal(t, "above_normal", d.Priority)
	assert.Equal(t, uint64(128), d.MaxMemoryMB)
}

func TestProxyPreset(t *testing.T) {
	d := Proxy().Describe()
	assert.Equal(t, "normal", d.Priority)
	assert.Equal(t, uint64(256), d.MaxMemoryMB)
}

func TestCustomLimits(t *testing.T) {
	l := Custom(PriorityHigh, 64, []int{0, 1})
	d := l.Describe()
	assert.Equal(t, "high", d.Priority)
	assert.Equal(t, uint64(64), d.MaxMemoryMB)
	assert.Equal(t, []int{0, 1}, d.CPUAffinity)
	assert.True(t, l.HasLimits())
}

func TestZeroValueHasNoLimits(t *testing.T) {
	var l Limits
	assert.False(t, l.HasLimits())
}

func TestWithWorkingSet(t *testing.T) {
	l := Proxy().WithWorkingSet(1024, 2048)
	d := l.Describe()
	assert.Equal(t, uint64(1024), d.MinWorkingSet)
	assert.Equal(t, uint64(2048), d.MaxWorkingSet)
}
