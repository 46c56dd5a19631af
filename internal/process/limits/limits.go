// Package limits describes the OS-level resource constraints a supervised
// process may run under (priority class, CPU affinity, working-set bounds,
// and a job-object-style memory ceiling on Windows). Presets mirror the two
// process shapes this core actually spawns; Custom and Describe are added so
// callers and tests can inspect a resolved limit set instead of only
// applying it blind.
package limits

// Priority mirrors a Windows process priority class; PriorityNormal is the
// zero value. Non-Windows platforms apply none of the limits (see
// limiter_unix.go).
type Priority int

const (
	PriorityIdle Priority = iota - 2
	PriorityBelowNormal
	PriorityNormal
	PriorityAboveNormal
	PriorityHigh
	PriorityRealtime
)

func (p Priority) String() string {
	switch p {
	case PriorityIdle:
		return "idle"
	case PriorityBelowNormal:
		return "below_normal"
	case PriorityNormal:
		return "normal"
	case PriorityAboveNormal:
		return "above_normal"
	case PriorityHigh:
		return "high"
	case PriorityRealtime:
		return "realtime"
	default:
		return "unknown"
	}
}

// Limits is an immutable description of the constraints to apply to one
// spawned process. The zero value has no limits at all.
type Limits struct {
	priority       Priority
	maxMemoryMB    uint64
	cpuAffinity    []int
	minWorkingSet  uint64
	maxWorkingSet  uint64
}

// Helper returns the preset used for the DPI-circumvention helper process:
// above-normal priority, since dropped packets degrade the user's
// connection in a way they notice immediately, and a 128MB memory ceiling.
func Helper() Limits {
	return Limits{
		priority:      PriorityAboveNormal,
		maxMemoryMB:   128,
		minWorkingSet: 4 * 1024 * 1024,
		maxWorkingSet: 128 * 1024 * 1024,
	}
}

// Proxy returns the preset used for a proxy/tunnel process: normal
// priority and a 256MB memory ceiling.
func Proxy() Limits {
	return Limits{
		priority:      PriorityNormal,
		maxMemoryMB:   256,
		minWorkingSet: 4 * 1024 * 1024,
		maxWorkingSet: 256 * 1024 * 1024,
	}
}

// Custom builds a Limits value from explicit fields, for processes that
// don't fit either preset (e.g. a plugin-spawned helper with caller-supplied
// bounds).
func Custom(priority Priority, maxMemoryMB uint64, cpuAffinity []int) Limits {
	affinity := make([]int, len(cpuAffinity))
	copy(affinity, cpuAffinity)
	return Limits{
		priority:    priority,
		maxMemoryMB: maxMemoryMB,
		cpuAffinity: affinity,
	}
}

// WithWorkingSet returns a copy of l with an explicit working-set range.
func (l Limits) WithWorkingSet(minBytes, maxBytes uint64) Limits {
	l.minWorkingSet = minBytes
	l.maxWorkingSet = maxBytes
	return l
}

// HasLimits reports whether any constraint is actually set.
func (l Limits) HasLimits() bool {
	return l.priority != PriorityNormal || l.maxMemoryMB > 0 || len(l.cpuAffinity) > 0 || l.maxWorkingSet > 0
}

// Describe returns a snapshot of the resolved limits, for logging and
// tests — callers should not need to reach into Limits' unexported fields.
type Describe struct {
	Priority      string
	MaxMemoryMB   uint64
	CPUAffinity   []int
	MinWorkingSet uint64
	MaxWorkingSet uint64
}

func (l Limits) Describe() Describe {
	affinity := make([]int, len(l.cpuAffinity))
	copy(affinity, l.cpuAffinity)
	return Describe{
		Priority:      l.priority.String(),
		MaxMemoryMB:   l.maxMemoryMB,
		CPUAffinity:   affinity,
		MinWorkingSet: l.minWorkingSet,
		MaxWorkingSet: l.maxWorkingSet,
	}
}
