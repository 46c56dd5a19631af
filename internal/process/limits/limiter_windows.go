//go:build windows

package limits

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var priorityClass = map[Priority]uint32{
	PriorityIdle:        windows.IDLE_PRIORITY_CLASS,
	PriorityBelowNormal: windows.BELOW_NORMAL_PRIORITY_CLASS,
	PriorityNormal:      windows.NORMAL_PRIORITY_CLASS,
	PriorityAboveNormal: windows.ABOVE_NORMAL_PRIORITY_CLASS,
	PriorityHigh:        windows.HIGH_PRIORITY_CLASS,
	PriorityRealtime:    windows.REALTIME_PRIORITY_CLASS,
}

// Apply sets the priority class, CPU affinity, and working-set bounds of
// the process identified by pid, and assigns it to a fresh job object that
// enforces l's memory ceiling. A process that is already assigned to
// another job (ERROR_ACCESS_DENIED from AssignProcessToJobObject, since a
// process may belong to only one job unless the existing job allows
// breakaway) is ignored rather than failing the whole call: the
// priority/affinity/working-set knobs set above still took effect, only
// the memory cap is unavailable.
func Apply(pid int, l Limits) error {
	handle, err := windows.OpenProcess(windows.PROCESS_SET_INFORMATION|windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle)

	if class, ok := priorityClass[l.priority]; ok {
		if err := windows.SetPriorityClass(handle, class); err != nil {
			return err
		}
	}

	if l.minWorkingSet > 0 && l.maxWorkingSet > 0 {
		if err := windows.SetProcessWorkingSetSize(handle, uintptr(l.minWorkingSet), uintptr(l.maxWorkingSet)); err != nil {
			return err
		}
	}

	if len(l.cpuAffinity) > 0 {
		if err := setProcessAffinity(handle, l.cpuAffinity); err != nil {
			return err
		}
	}

	if l.maxMemoryMB > 0 {
		if err := assignMemoryJob(handle, l.maxMemoryMB); err != nil && err != windows.ERROR_ACCESS_DENIED {
			return err
		}
	}
	return nil
}

func setProcessAffinity(handle windows.Handle, cpus []int) error {
	var mask uintptr
	for _, cpu := range cpus {
		mask |= 1 << uint(cpu)
	}
	r1, _, err := procSetProcessAffinityMask.Call(uintptr(handle), mask)
	if r1 == 0 {
		return err
	}
	return nil
}

// assignMemoryJob creates a job object capping resident memory at
// maxMemoryMB and assigns handle's process to it.
func assignMemoryJob(handle windows.Handle, maxMemoryMB uint64) error {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(job)

	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_PROCESS_MEMORY,
		},
		ProcessMemoryLimit: uintptr(maxMemoryMB) * 1024 * 1024,
	}
	if _, err := windows.SetInformationJobObject(job, windows.JobObjectExtendedLimitInformation, uintptr(unsafe.Pointer(&info)), uint32(unsafe.Sizeof(info))); err != nil {
		return err
	}

	if err := windows.AssignProcessToJobObject(job, handle); err != nil {
		return err
	}
	return nil
}

// SetProcessAffinityMask has no high-level wrapper in x/sys/windows, unlike
// the job-object and priority-class calls above.
var (
	modkernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procSetProcessAffinityMask = modkernel32.NewProc("SetProcessAffinityMask")
)
