// Package validation implements syntactic and semantic validation of
// user input, including the SSRF guard (PublicURL) that rejects a URL whose
// host is, or resolves to, a private address. The probe client and the
// plugin script runtime do not call it.
package validation

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/whitebite/isolate-core/internal/errkit"
)

// NotEmpty rejects a blank (after trimming) string.
func NotEmpty(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return errkit.Validation(field, "cannot be empty")
	}
	return nil
}

// Domain validates a domain name: ≤253 chars total, each
// label 1-63 chars, alphanumeric + hyphen with no leading/trailing hyphen,
// at least one dot, no whitespace.
func Domain(domain string) error {
	if err := NotEmpty(domain, "domain"); err != nil {
		return err
	}
	d := strings.ToLower(strings.TrimSpace(domain))

	if len(d) > 253 {
		return errkit.Validation("domain", "exceeds maximum length of 253 characters")
	}
	if !strings.Contains(d, ".") {
		return errkit.Validation("domain", "must contain at least one dot")
	}
	if strings.ContainsAny(d, " \n\t") {
		return errkit.Validation("domain", "contains invalid whitespace characters")
	}

	for _, label := range strings.Split(d, ".") {
		if label == "" {
			return errkit.Validation("domain", "contains empty label (consecutive dots)")
		}
		if len(label) > 63 {
			return errkit.Validation("domain", "label '"+label+"' exceeds 63 characters")
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return errkit.Validation("domain", "label '"+label+"' cannot start or end with hyphen")
		}
		for _, c := range label {
			if !isAlphaNumHyphen(c) {
				return errkit.Validation("domain", "label '"+label+"' contains invalid characters")
			}
		}
	}
	return nil
}

func isAlphaNumHyphen(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-'
}

// Port accepts 1 through 65535 and rejects anything outside that range.
func Port(port int) error {
	if port <= 0 || port > 65535 {
		return errkit.Validation("port", "must be between 1 and 65535")
	}
	return nil
}

// URL requires an http:// or https:// scheme and a parseable structure.
func URL(raw string) (*url.URL, error) {
	if err := NotEmpty(raw, "url"); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return nil, errkit.Validation("url", "must start with http:// or https://")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, errkit.Validation("url", "invalid URL format: "+err.Error())
	}
	return parsed, nil
}

// isPrivateIP implements the SSRF-critical private range check.
func isPrivateIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		switch {
		case v4[0] == 127: // 127.0.0.0/8
			return true
		case v4[0] == 10: // 10.0.0.0/8
			return true
		case v4[0] == 172 && v4[1] >= 16 && v4[1] <= 31: // 172.16.0.0/12
			return true
		case v4[0] == 192 && v4[1] == 168: // 192.168.0.0/16
			return true
		case v4[0] == 169 && v4[1] == 254: // 169.254.0.0/16
			return true
		}
		return false
	}

	if ip.IsLoopback() { // ::1
		return true
	}
	segments := ip.To16()
	if segments == nil {
		return false
	}
	first16 := uint16(segments[0])<<8 | uint16(segments[1])
	if first16 >= 0xfc00 && first16 <= 0xfdff { // fc00::/7
		return true
	}
	if first16 >= 0xfe80 && first16 <= 0xfebf { // fe80::/10
		return true
	}
	return false
}

// Resolver abstracts hostname resolution so tests can stub DNS lookups.
type Resolver interface {
	LookupIPAddr(host string) ([]net.IP, error)
}

type netResolver struct{}

func (netResolver) LookupIPAddr(host string) ([]net.IP, error) {
	addrs, err := net.LookupHost(host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil {
			ips = append(ips, ip)
		}
	}
	return ips, nil
}

// DefaultResolver is the OS resolver used outside of tests.
var DefaultResolver Resolver = netResolver{}

// PublicURL is the SSRF guard: parse → require http/https → reject literal
// "localhost" → reject a private IP literal → otherwise resolve via the OS
// resolver and reject if ANY resolved address is private.
func PublicURL(raw string) (*url.URL, error) {
	parsed, err := URL(raw)
	if err != nil {
		return nil, err
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, errkit.Validation("url", "must have a host")
	}

	hostLower := strings.ToLower(strings.TrimSuffix(host, "."))
	if hostLower == "localhost" {
		return nil, errkit.SecurityError("access to localhost is not allowed")
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return nil, errkit.SecurityError("access to private IP address " + ip.String() + " is not allowed")
		}
		return parsed, nil
	}

	resolved, err := DefaultResolver.LookupIPAddr(host)
	if err != nil {
		return nil, errkit.Validation("url", "failed to resolve hostname '"+host+"': "+err.Error())
	}
	if len(resolved) == 0 {
		return nil, errkit.Validation("url", "hostname '"+host+"' did not resolve to any IP addresses")
	}
	for _, ip := range resolved {
		if isPrivateIP(ip) {
			return nil, errkit.SecurityError("hostname '" + host + "' resolves to private IP address " + ip.String())
		}
	}
	return parsed, nil
}

// IPv4 validates dotted-quad IPv4 syntax.
func IPv4(ip string) error {
	if err := NotEmpty(ip, "ipv4"); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(ip)
	parsed := net.ParseIP(trimmed)
	if parsed == nil || parsed.To4() == nil || strings.Contains(trimmed, ":") {
		return errkit.Validation("ipv4", "invalid IPv4 address format: "+ip)
	}
	return nil
}

// IPv6 validates (optionally bracketed) IPv6 syntax.
func IPv6(ip string) error {
	if err := NotEmpty(ip, "ipv6"); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(ip)
	trimmed = strings.TrimPrefix(trimmed, "[")
	trimmed = strings.TrimSuffix(trimmed, "]")
	parsed := net.ParseIP(trimmed)
	if parsed == nil || parsed.To4() != nil {
		return errkit.Validation("ipv6", "invalid IPv6 address format: "+ip)
	}
	return nil
}

// IP validates either IPv4 or IPv6 syntax.
func IP(ip string) error {
	if err := NotEmpty(ip, "ip"); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(ip)
	if IPv4(trimmed) == nil || IPv6(trimmed) == nil {
		return nil
	}
	return errkit.Validation("ip", "invalid IP address format (neither IPv4 nor IPv6): "+ip)
}

// StrategyID validates the ≤64 char, [A-Za-z0-9_-] (not leading with - or _)
// strategy id format.
func StrategyID(id string) error {
	if err := NotEmpty(id, "strategy_id"); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(id)
	if len(trimmed) > 64 {
		return errkit.Validation("strategy_id", "exceeds maximum length of 64 characters")
	}
	if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "_") {
		return errkit.Validation("strategy_id", "cannot start with hyphen or underscore")
	}
	for _, c := range trimmed {
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c == '-') {
			return errkit.Validation("strategy_id", "can only contain alphanumeric characters, underscores, and hyphens")
		}
	}
	return nil
}

// ProxyHost accepts either an IP literal or a domain name.
func ProxyHost(host string) error {
	if err := NotEmpty(host, "host"); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(host)
	if IP(trimmed) == nil {
		return nil
	}
	if err := Domain(trimmed); err != nil {
		return errkit.Validation("host", "must be a valid IP address or domain: "+host)
	}
	return nil
}

// ProxyConfigInput is the plain-data view validated by ProxyConfig.
type ProxyConfigInput struct {
	Host     string
	Port     int
	Protocol string
	Username string
	Password string
	HasUsername bool
	HasPassword bool
}

var validProxyProtocols = map[string]bool{
	"http": true, "https": true, "socks4": true, "socks5": true,
	"vless": true, "vmess": true, "trojan": true, "shadowsocks": true,
}

// ProxyConfig validates a full proxy configuration.
func ProxyConfig(cfg ProxyConfigInput) error {
	if err := ProxyHost(cfg.Host); err != nil {
		return err
	}
	if err := Port(cfg.Port); err != nil {
		return err
	}

	protocol := strings.ToLower(cfg.Protocol)
	if !validProxyProtocols[protocol] {
		return errkit.Validation("protocol", "invalid proxy protocol '"+cfg.Protocol+"'")
	}

	if cfg.HasUsername {
		if strings.TrimSpace(cfg.Username) == "" {
			return errkit.Validation("username", "cannot be empty if provided")
		}
		if len(cfg.Username) > 255 {
			return errkit.Validation("username", "exceeds maximum length of 255 characters")
		}
	}
	if cfg.HasPassword && len(cfg.Password) > 255 {
		return errkit.Validation("password", "exceeds maximum length of 255 characters")
	}

	if cfg.HasUsername && !cfg.HasPassword {
		if protocol != "socks5" && protocol != "http" {
			return errkit.Validation("password", "required when username is provided for protocol "+protocol)
		}
	}
	return nil
}

// UUID validates the 8-4-4-4-12 hex-digit UUID shape.
func UUID(uuid string) error {
	if err := NotEmpty(uuid, "uuid"); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(uuid)
	parts := strings.Split(trimmed, "-")
	if len(parts) != 5 {
		return errkit.Validation("uuid", "must have 5 parts separated by hyphens")
	}
	expectedLens := [5]int{8, 4, 4, 4, 12}
	for i, part := range parts {
		if len(part) != expectedLens[i] {
			return errkit.Validation("uuid", "part "+strconv.Itoa(i+1)+" should be "+strconv.Itoa(expectedLens[i])+" characters")
		}
		for _, c := range part {
			if !isHexDigit(c) {
				return errkit.Validation("uuid", "part "+strconv.Itoa(i+1)+" must be hexadecimal")
			}
		}
	}
	return nil
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// TTL validates a cache/refresh interval in seconds, requiring a positive,
// bounded value (1s – 24h) so a misconfigured TTL cannot disable caching
// entirely or pin it forever.
func TTL(seconds int) error {
	if seconds <= 0 {
		return errkit.Validation("ttl", "must be positive")
	}
	if seconds > 86400 {
		return errkit.Validation("ttl", "must not exceed 24 hours")
	}
	return nil
}

// AutoTTL validates the "auto" TTL knob: either the literal -1 (meaning
// "disabled"/on-demand only) or a value accepted by TTL.
func AutoTTL(seconds int) error {
	if seconds == -1 {
		return nil
	}
	return TTL(seconds)
}
