package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitebite/isolate-core/internal/hostlist"
)

func writePluginDir(t *testing.T, root, id, manifestBody string, extraFiles map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(manifestBody), 0o644))
	for name, body := range extraFiles {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

const serviceManifest = `{
	"id": "acme-svc",
	"name": "Acme Service",
	"type": "service-checker",
	"service": {
		"id": "acme-svc",
		"name": "Acme Service",
		"endpoints": [{"id": "ep1", "url": "https://acme.example.com", "method": "HEAD"}]
	}
}`

const hostlistManifest = `{
	"id": "acme-hostlist",
	"name": "Acme Hostlist",
	"type": "hostlist-provider",
	"hostlist": {"id": "acme-domains", "name": "Acme Domains", "format": "plain", "domains": ["acme.example.com"]}
}`

func TestDiscoverDirsFindsOnlyPluginJSONDirs(t *testing.T) {
	root := t.TempDir()
	writePluginDir(t, root, "acme-svc", serviceManifest, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-plugin"), 0o755))

	m := New(root, hostlist.New(), nil)
	dirs, err := m.DiscoverDirs()
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	assert.Equal(t, filepath.Join(root, "acme-svc"), dirs[0])
}

func TestDiscoverDirsMissingRootYieldsEmpty(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "missing"), hostlist.New(), nil)
	dirs, err := m.DiscoverDirs()
	require.NoError(t, err)
	assert.Empty(t, dirs)
}

func TestLoadRegistersServiceContribution(t *testing.T) {
	root := t.TempDir()
	dir := writePluginDir(t, root, "acme-svc", serviceManifest, nil)

	m := New(root, hostlist.New(), nil)
	manifest, err := m.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "acme-svc", manifest.ID)

	services := m.Services()
	require.Len(t, services, 1)
	assert.Equal(t, "acme-svc", services[0].ID)
}

func TestLoadRegistersHostlistContribution(t *testing.T) {
	root := t.TempDir()
	dir := writePluginDir(t, root, "acme-hostlist", hostlistManifest, nil)

	reg := hostlist.New()
	m := New(root, reg, nil)
	_, err := m.Load(dir)
	require.NoError(t, err)

	h, ok := reg.Get("acme-domains")
	require.True(t, ok)
	assert.Equal(t, []string{"acme.example.com"}, h.Domains)
}

func TestLoadIsIdempotent(t *testing.T) {
	root := t.TempDir()
	dir := writePluginDir(t, root, "acme-svc", serviceManifest, nil)

	m := New(root, hostlist.New(), nil)
	_, err := m.Load(dir)
	require.NoError(t, err)
	_, err = m.Load(dir)
	require.NoError(t, err)

	assert.Len(t, m.Services(), 1)
}

func TestUnloadRemovesContributions(t *testing.T) {
	root := t.TempDir()
	dir := writePluginDir(t, root, "acme-hostlist", hostlistManifest, nil)

	reg := hostlist.New()
	m := New(root, reg, nil)
	_, err := m.Load(dir)
	require.NoError(t, err)

	m.Unload("acme-hostlist")
	assert.Empty(t, m.Services())
	_, ok := reg.Get("acme-domains")
	assert.False(t, ok)
}

func TestUnloadUnknownIDIsNoop(t *testing.T) {
	m := New(t.TempDir(), hostlist.New(), nil)
	m.Unload("nope")
}

func TestReloadAllUnloadsRemovedPlugins(t *testing.T) {
	root := t.TempDir()
	dirA := writePluginDir(t, root, "plugin-a", `{"id": "plugin-a"}`, nil)
	_ = dirA
	writePluginDir(t, root, "plugin-b", `{"id": "plugin-b"}`, nil)

	m := New(root, hostlist.New(), nil)
	require.NoError(t, m.ReloadAll())
	require.Len(t, m.Manifests(), 2)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "plugin-b")))
	require.NoError(t, m.ReloadAll())

	manifests := m.Manifests()
	require.Len(t, manifests, 1)
	_, ok := manifests["plugin-a"]
	assert.True(t, ok)
}

func TestGetStrategyImplementsStrategyProvider(t *testing.T) {
	root := t.TempDir()
	dir := writePluginDir(t, root, "acme-strategy", `{
		"id": "acme-strategy",
		"type": "strategy-provider",
		"strategy": {"id": "acme-strategy", "name": "Acme Strategy", "global": {"binary": "acme.exe"}}
	}`, nil)

	m := New(root, hostlist.New(), nil)
	_, err := m.Load(dir)
	require.NoError(t, err)

	strategy, ok := m.GetStrategy("acme-strategy")
	require.True(t, ok)
	assert.Equal(t, "Plugin{acme-strategy}", strategy.Engine)
}

func TestRunCheckExecutesPluginScript(t *testing.T) {
	root := t.TempDir()
	dir := writePluginDir(t, root, "acme-svc", serviceManifest, map[string]string{
		"check.js": "function check() { return true; }",
	})

	m := New(root, hostlist.New(), nil)
	_, err := m.Load(dir)
	require.NoError(t, err)

	result, err := m.RunCheck(context.Background(), "acme-svc")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestLoadKeysServiceByItsOwnIDNotManifestID(t *testing.T) {
	root := t.TempDir()
	dir := writePluginDir(t, root, "acme-plugin", `{
		"id": "acme-plugin",
		"name": "Acme Plugin",
		"type": "service-checker",
		"service": {
			"id": "acme-svc-nested",
			"name": "Acme Service",
			"endpoints": [{"id": "ep1", "url": "https://acme.example.com", "method": "HEAD"}]
		}
	}`, nil)

	m := New(root, hostlist.New(), nil)
	_, err := m.Load(dir)
	require.NoError(t, err)

	services := m.Services()
	require.Len(t, services, 1)
	assert.Equal(t, "acme-svc-nested", services[0].ID)

	m.Unload("acme-plugin")
	assert.Empty(t, m.Services())
}

func TestLoadKeysStrategyByItsOwnIDNotManifestID(t *testing.T) {
	root := t.TempDir()
	dir := writePluginDir(t, root, "acme-plugin", `{
		"id": "acme-plugin",
		"type": "strategy-provider",
		"strategy": {"id": "acme-strategy-nested", "name": "Acme Strategy", "global": {"binary": "acme.exe"}}
	}`, nil)

	m := New(root, hostlist.New(), nil)
	_, err := m.Load(dir)
	require.NoError(t, err)

	strategy, ok := m.GetStrategy("acme-strategy-nested")
	require.True(t, ok)
	assert.Equal(t, "Plugin{acme-plugin}", strategy.Engine)

	m.Unload("acme-plugin")
	_, ok = m.GetStrategy("acme-strategy-nested")
	assert.False(t, ok)
}

func TestRunCheckWithoutScriptReturnsNotFound(t *testing.T) {
	root := t.TempDir()
	dir := writePluginDir(t, root, "acme-svc", serviceManifest, nil)

	m := New(root, hostlist.New(), nil)
	_, err := m.Load(dir)
	require.NoError(t, err)

	_, err = m.RunCheck(context.Background(), "acme-svc")
	assert.Error(t, err)
}
