// Package domain holds the shared data model for the supervisor: strategies,
// services, probes, scores, managed processes, proxy configuration, A/B
// tests and the plugin/hostlist contribution types. Nothing in this package
// talks to the filesystem, network, or a database — it is pure data plus the
// small amount of validation that is really an invariant of the shape itself.
package domain

// Family tags a strategy's underlying bypass technique.
type Family string

const (
	FamilyDNSBypass    Family = "dns-bypass"
	FamilyZapret       Family = "zapret"
	FamilyVLESS        Family = "vless"
	FamilyVMess        Family = "vmess"
	FamilyTrojan       Family = "trojan"
	FamilyShadowsocks  Family = "shadowsocks"
	FamilyCustom       Family = "custom"
)

// ModeCapabilities records which launch modes a strategy supports.
type ModeCapabilities struct {
	SupportsPerService bool
	SupportsGlobal     bool
}

// LaunchTemplate describes how to exec a helper binary for one mode.
type LaunchTemplate struct {
	Binary         string
	Args           []string
	Env            map[string]string
	LogPath        string
	RequiresAdmin  bool
	PriorityHint   string
	TargetServices []string
}

// Strategy is a named configuration telling a helper binary how to rewrite packets.
type Strategy struct {
	ID          string
	Name        string
	Family      Family
	Engine      string
	Modes       ModeCapabilities
	PerService  *LaunchTemplate
	Global      *LaunchTemplate
	WeightHint  float64
}

// Validate enforces the strategy invariant: at least one launch template
// must be present. A capability flag with no matching template is a warning,
// not a rejection, so it is reported via the returned warnings slice instead
// of an error.
func (s Strategy) Validate() (warnings []string, err error) {
	if s.PerService == nil && s.Global == nil {
		return nil, errNoLaunchTemplate
	}
	if s.Modes.SupportsPerService && s.PerService == nil {
		warnings = append(warnings, "strategy "+s.ID+": supports_per_service set without a per-service template")
	}
	if s.Modes.SupportsGlobal && s.Global == nil {
		warnings = append(warnings, "strategy "+s.ID+": supports_global set without a global template")
	}
	return warnings, nil
}

// TemplateFor returns the launch template for the requested mode.
func (s Strategy) TemplateFor(global bool) *LaunchTemplate {
	if global {
		return s.Global
	}
	return s.PerService
}
