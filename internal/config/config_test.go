package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStrategy = `
id: s1
name: Split Desync
family: zapret
engine: zapret-helper
modes:
  supports_per_service: true
per_service:
  binary: ./helper
  args: ["--dpi-desync", "split"]
weight_hint: 0.5
`

const sampleService = `
id: youtube
name: YouTube
critical: true
default_enabled: true
tests:
  - kind: https-get
    url: https://www.youtube.com
    timeout_seconds: 3
    accepted_status: [200]
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoaderReadsStrategiesAndServices(t *testing.T) {
	stratDir := t.TempDir()
	svcDir := t.TempDir()
	writeFile(t, stratDir, "s1.yaml", sampleStrategy)
	writeFile(t, svcDir, "youtube.yaml", sampleService)

	l := New(stratDir, svcDir)
	strategies, err := l.Strategies()
	require.NoError(t, err)
	require.Contains(t, strategies, "s1")
	assert.Equal(t, "Split Desync", strategies["s1"].Name)

	services, err := l.Services()
	require.NoError(t, err)
	require.Contains(t, services, "youtube")
	assert.True(t, services["youtube"].Critical)
	assert.Equal(t, 3*time.Second, services["youtube"].Tests[0].Timeout)
}

func TestLoaderMissingDirectoryYieldsEmptyMap(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "nope2"))
	strategies, err := l.Strategies()
	require.NoError(t, err)
	assert.Empty(t, strategies)
}

func TestLoaderCachesUntilReload(t *testing.T) {
	stratDir := t.TempDir()
	svcDir := t.TempDir()
	writeFile(t, stratDir, "s1.yaml", sampleStrategy)

	l := New(stratDir, svcDir)
	_, err := l.Strategies()
	require.NoError(t, err)

	writeFile(t, stratDir, "s2.yaml", `
id: s2
name: Second
family: custom
modes:
  supports_global: true
global:
  binary: ./helper2
`)
	strategies, err := l.Strategies()
	require.NoError(t, err)
	assert.NotContains(t, strategies, "s2", "cached read should not pick up the new file yet")

	require.NoError(t, l.Reload())
	strategies, err = l.Strategies()
	require.NoError(t, err)
	assert.Contains(t, strategies, "s2")
}

func TestLoaderRejectsStrategyWithNoTemplate(t *testing.T) {
	stratDir := t.TempDir()
	writeFile(t, stratDir, "bad.yaml", "id: bad\nname: Bad\n")

	l := New(stratDir, t.TempDir())
	_, err := l.Strategies()
	assert.Error(t, err)
}

func TestGetStrategyImplementsStrategyProvider(t *testing.T) {
	stratDir := t.TempDir()
	writeFile(t, stratDir, "s1.yaml", sampleStrategy)

	l := New(stratDir, t.TempDir())
	strategy, ok := l.GetStrategy("s1")
	require.True(t, ok)
	assert.Equal(t, "s1", strategy.ID)

	_, ok = l.GetStrategy("missing")
	assert.False(t, ok)
}
