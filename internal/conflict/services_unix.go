//go:build !windows

package conflict

import "context"

const platformSupported = false

// runningServiceNames is a no-op on non-Windows platforms: the known
// conflict list is Windows-specific software, so there is nothing to
// enumerate here.
func runningServiceNames(ctx context.Context) ([]string, error) {
	return nil, nil
}
