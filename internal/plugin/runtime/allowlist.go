package runtime

import "strings"

// hostAllowed reports whether host is permitted by allowlist. An entry of
// the form "*.example.com" matches "example.com" and any subdomain of it;
// any other entry must match exactly, case-insensitively.
func hostAllowed(allowlist []string, host string) bool {
	host = strings.ToLower(host)
	for _, entry := range allowlist {
		entry = strings.ToLower(entry)
		if suffix, ok := strings.CutPrefix(entry, "*."); ok {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == entry {
			return true
		}
	}
	return false
}
