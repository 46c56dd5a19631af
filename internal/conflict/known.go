package conflict

// knownConflicts is the compiled list of known-conflicting software,
// grouped by category and severity. Entries here name the techniques most
// likely to fight this core for the same kernel-filter slot (packet-filter
// drivers) or otherwise interfere with its probes.
var knownConflicts = []knownConflict{
	{
		DisplayName:  "GoodbyeDPI",
		ProcessNames: []string{"goodbyedpi.exe"},
		Category:     CategoryNetworkFilter,
		Severity:     SeverityCritical,
	},
	{
		DisplayName:  "Zapret (winws)",
		ProcessNames: []string{"winws.exe", "zapret.exe"},
		Category:     CategoryNetworkFilter,
		Severity:     SeverityCritical,
	},
	{
		DisplayName:     "WinDivert-based filter service",
		ServicePatterns: []string{"WinDivert$*"},
		Category:        CategoryNetworkFilter,
		Severity:        SeverityCritical,
	},
	{
		DisplayName:  "ByeDPI",
		ProcessNames: []string{"byedpi.exe", "ciadpi.exe"},
		Category:     CategoryNetworkFilter,
		Severity:     SeverityHigh,
	},
	{
		DisplayName:  "OpenVPN",
		ProcessNames: []string{"openvpn.exe", "openvpn-gui.exe"},
		Category:     CategoryVPN,
		Severity:     SeverityHigh,
	},
	{
		DisplayName:     "OpenVPN service",
		ServicePatterns: []string{"OpenVPNService$*"},
		Category:        CategoryVPN,
		Severity:        SeverityHigh,
	},
	{
		DisplayName:  "WireGuard",
		ProcessNames: []string{"wireguard.exe", "wg.exe"},
		Category:     CategoryVPN,
		Severity:     SeverityHigh,
	},
	{
		DisplayName:  "NordVPN / ExpressVPN style client",
		ProcessNames: []string{"nordvpn.exe", "expressvpn.exe"},
		Category:     CategoryVPN,
		Severity:     SeverityMedium,
	},
	{
		DisplayName:  "Windscribe optimiser service",
		ProcessNames: []string{"windscribeservice.exe"},
		Category:     CategoryNetworkOptimise,
		Severity:     SeverityMedium,
	},
	{
		DisplayName:     "Killer Network / NCP acceleration service",
		ServicePatterns: []string{"KillerNetworkService$*", "NCP$*"},
		Category:        CategoryNetworkOptimise,
		Severity:        SeverityLow,
	},
	{
		DisplayName:  "Kaspersky network protection",
		ProcessNames: []string{"avp.exe"},
		Category:     CategorySecurity,
		Severity:     SeverityHigh,
	},
	{
		DisplayName:  "ESET network filter",
		ProcessNames: []string{"ekrn.exe"},
		Category:     CategorySecurity,
		Severity:     SeverityHigh,
	},
	{
		DisplayName:     "Windows Defender network inspection service",
		ServicePatterns: []string{"WdNisSvc$*"},
		Category:        CategorySecurity,
		Severity:        SeverityMedium,
	},
}
