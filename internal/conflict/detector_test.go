package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchServicePatternPrefix(t *testing.T) {
	name, ok := matchServicePattern("WinDivert$*", []string{"WinDivert1.4", "unrelated"})
	require.True(t, ok)
	assert.Equal(t, "WinDivert1.4", name)
}

func TestMatchServicePatternExact(t *testing.T) {
	_, ok := matchServicePattern("OpenVPNService", []string{"openvpnservice"})
	assert.True(t, ok)

	_, ok = matchServicePattern("OpenVPNService", []string{"openvpnserviceother"})
	assert.False(t, ok)
}

func TestSeverityRankOrdering(t *testing.T) {
	assert.Less(t, SeverityCritical.rank(), SeverityHigh.rank())
	assert.Less(t, SeverityHigh.rank(), SeverityMedium.rank())
	assert.Less(t, SeverityMedium.rank(), SeverityLow.rank())
}

func TestDetectorRecognisesSelfName(t *testing.T) {
	d := New("winws.exe")

	counts := map[string]int{"winws.exe": 1}
	assert.True(t, d.isSelf("winws.exe"))
	assert.Equal(t, 1, counts["winws.exe"])
}

func TestDetectorSortsBySeverity(t *testing.T) {
	dets := []Detection{
		{DisplayName: "b", Severity: SeverityMedium},
		{DisplayName: "a", Severity: SeverityCritical},
		{DisplayName: "c", Severity: SeverityLow},
	}
	sorted := append([]Detection(nil), dets...)
	sortBySeverity(sorted)
	assert.Equal(t, "a", sorted[0].DisplayName)
	assert.Equal(t, "c", sorted[2].DisplayName)
}
