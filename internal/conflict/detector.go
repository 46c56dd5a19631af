package conflict

import (
	"context"
	"sort"
	"strings"

	gopsutilproc "github.com/shirou/gopsutil/v3/process"
)

// Detector enumerates running processes and services once per Detect call
// and matches them against knownConflicts. selfNames lists the process
// names this core's own helper binaries run under, so self-detection
// suppression can tell "the one instance currently running" from
// "two or more, which is itself a conflict".
type Detector struct {
	selfNames map[string]struct{}
}

// New creates a Detector. selfNames are lower-cased process names (e.g.
// "winws.exe") belonging to this core's own managed helpers.
func New(selfNames ...string) *Detector {
	m := make(map[string]struct{}, len(selfNames))
	for _, n := range selfNames {
		m[strings.ToLower(n)] = struct{}{}
	}
	return &Detector{selfNames: m}
}

// Detect enumerates running processes and services and returns every
// matched conflict, critical-severity first. Returns an empty slice (not an
// error) on non-Windows platforms, since the known list is Windows-specific
// software.
func (d *Detector) Detect(ctx context.Context) ([]Detection, error) {
	if !platformSupported {
		return nil, nil
	}

	processCounts, err := runningProcessCounts(ctx)
	if err != nil {
		return nil, err
	}
	serviceNames, err := runningServiceNames(ctx)
	if err != nil {
		return nil, err
	}

	var out []Detection
	for _, kc := range knownConflicts {
		for _, procName := range kc.ProcessNames {
			count := processCounts[strings.ToLower(procName)]
			if count == 0 {
				continue
			}
			if d.isSelf(procName) && count < 2 {
				continue
			}
			out = append(out, Detection{DisplayName: kc.DisplayName, Category: kc.Category, Severity: kc.Severity, MatchedOn: procName})
		}
		for _, pattern := range kc.ServicePatterns {
			if name, ok := matchServicePattern(pattern, serviceNames); ok {
				out = append(out, Detection{DisplayName: kc.DisplayName, Category: kc.Category, Severity: kc.Severity, MatchedOn: name})
			}
		}
	}

	sortBySeverity(out)
	return out, nil
}

// sortBySeverity orders detections critical-first, stably.
func sortBySeverity(detections []Detection) {
	sort.SliceStable(detections, func(i, j int) bool { return detections[i].Severity.rank() < detections[j].Severity.rank() })
}

func (d *Detector) isSelf(procName string) bool {
	_, ok := d.selfNames[strings.ToLower(procName)]
	return ok
}

// matchServicePattern reports whether pattern matches any of names.
// Patterns ending in "$*" prefix-match; anything else is an exact,
// case-insensitive match.
func matchServicePattern(pattern string, names []string) (string, bool) {
	prefix, isPrefix := strings.CutSuffix(pattern, "$*")
	for _, name := range names {
		if isPrefix {
			if strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
				return name, true
			}
			continue
		}
		if strings.EqualFold(name, pattern) {
			return name, true
		}
	}
	return "", false
}

// runningProcessCounts enumerates every running process via gopsutil and
// counts occurrences by lower-cased executable name.
func runningProcessCounts(ctx context.Context) (map[string]int, error) {
	procs, err := gopsutilproc.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		counts[strings.ToLower(name)]++
	}
	return counts, nil
}
