package engine

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/process"
	"github.com/whitebite/isolate-core/internal/process/limits"
)

type stubStrategies struct {
	byID map[string]domain.Strategy
}

func (s stubStrategies) GetStrategy(id string) (domain.Strategy, bool) {
	strategy, ok := s.byID[id]
	return strategy, ok
}

func testBinary(t *testing.T) string {
	t.Helper()
	self, err := os.Executable()
	require.NoError(t, err)
	return self
}

func TestStartGlobalExclusivity(t *testing.T) {
	bin := testBinary(t)
	strategies := stubStrategies{byID: map[string]domain.Strategy{
		"s1": {ID: "s1", Global: &domain.LaunchTemplate{Binary: bin, Args: []string{"-test.run=NONE"}}},
		"s2": {ID: "s2", Global: &domain.LaunchTemplate{Binary: bin, Args: []string{"-test.run=NONE"}}},
	}}
	sup := process.New(nil)
	e := New(sup, strategies, nil)
	ctx := context.Background()

	require.NoError(t, e.StartGlobal(ctx, "s1"))
	err := e.StartGlobal(ctx, "s2")
	assert.Error(t, err)

	require.NoError(t, e.StopGlobal(ctx))
}

func TestStartPerServiceRejectsUnknownStrategy(t *testing.T) {
	sup := process.New(nil)
	e := New(sup, stubStrategies{byID: map[string]domain.Strategy{}}, nil)
	err := e.StartPerService(context.Background(), "missing", "svc", 0)
	assert.Error(t, err)
}

func TestBuildSpecRejectsInjectionArgs(t *testing.T) {
	sup := process.New(nil)
	strategies := stubStrategies{byID: map[string]domain.Strategy{
		"s1": {ID: "s1", PerService: &domain.LaunchTemplate{Binary: "/bin/true", Args: []string{"; rm -rf /"}}},
	}}
	e := New(sup, strategies, nil)
	err := e.StartPerService(context.Background(), "s1", "svc", 0)
	assert.Error(t, err)
}

func TestSubstituteProxyPort(t *testing.T) {
	args := substituteProxyPort([]string{"--proxy", "{{proxy_port}}"}, 1080)
	assert.Equal(t, []string{"--proxy", "1080"}, args)
}

func TestLimitsForProxyFamiliesGetProxyPreset(t *testing.T) {
	for _, family := range []domain.Family{domain.FamilyVLESS, domain.FamilyVMess, domain.FamilyTrojan, domain.FamilyShadowsocks} {
		assert.Equal(t, limits.Proxy().Describe(), limitsFor(family).Describe(), "family %s", family)
	}
}

func TestLimitsForNonProxyFamiliesGetHelperPreset(t *testing.T) {
	for _, family := range []domain.Family{domain.FamilyDNSBypass, domain.FamilyZapret, domain.FamilyCustom, ""} {
		assert.Equal(t, limits.Helper().Describe(), limitsFor(family).Describe(), "family %s", family)
	}
}
