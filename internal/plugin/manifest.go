package plugin

import (
	"encoding/json"
	"os"

	"github.com/tidwall/gjson"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/errkit"
)

// manifestFile is the strict on-disk shape of plugin.json's required
// fields. Extra/forward-compat fields (currently permissions.filesystem,
// permissions.process) are pulled separately via gjson so an older manifest
// without them still loads, and a newer manifest with more of them doesn't
// fail strict unmarshal: unknown fields are tolerated for forward compat.
type manifestFile struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Version     string                     `json:"version"`
	Author      string                     `json:"author"`
	Description string                     `json:"description"`
	Type        string                     `json:"type"`
	Service     *domain.PluginServiceDef   `json:"service"`
	Strategy    *manifestStrategy          `json:"strategy"`
	Hostlist    *domain.PluginHostlistDef  `json:"hostlist"`
	Permissions manifestPermissions        `json:"permissions"`
}

type manifestPermissions struct {
	HTTPAllowlist []string `json:"http_allowlist"`
}

// manifestStrategy mirrors domain.Strategy's JSON-facing subset; launch
// templates are optional exactly like the domain type.
type manifestStrategy struct {
	ID         string                    `json:"id"`
	Name       string                    `json:"name"`
	Family     string                    `json:"family"`
	Engine     string                    `json:"engine"`
	PerService *domain.LaunchTemplate    `json:"per_service"`
	Global     *domain.LaunchTemplate    `json:"global"`
	WeightHint float64                   `json:"weight_hint"`
}

// loadManifest reads and parses path's plugin.json into a domain.Manifest.
func loadManifest(path string) (domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Manifest{}, errkit.ConfigError(path, err.Error())
	}

	var raw manifestFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Manifest{}, errkit.ConfigError(path, "invalid manifest json: "+err.Error())
	}
	if raw.ID == "" {
		return domain.Manifest{}, errkit.ConfigError(path, "manifest missing id")
	}

	m := domain.Manifest{
		ID:          raw.ID,
		Name:        raw.Name,
		Version:     raw.Version,
		Author:      raw.Author,
		Description: raw.Description,
		Type:        domain.PluginType(raw.Type),
		Service:     raw.Service,
		Hostlist:    raw.Hostlist,
		Permissions: domain.PluginPermissions{
			HTTPAllowlist: raw.Permissions.HTTPAllowlist,
			Filesystem:    gjson.GetBytes(data, "permissions.filesystem").Bool(),
			Process:       gjson.GetBytes(data, "permissions.process").Bool(),
		},
	}
	if raw.Strategy != nil {
		m.Strategy = &domain.Strategy{
			ID:         raw.Strategy.ID,
			Name:       raw.Strategy.Name,
			Family:     domain.Family(raw.Strategy.Family),
			Engine:     raw.Strategy.Engine,
			PerService: raw.Strategy.PerService,
			Global:     raw.Strategy.Global,
			WeightHint: raw.Strategy.WeightHint,
			Modes: domain.ModeCapabilities{
				SupportsPerService: raw.Strategy.PerService != nil,
				SupportsGlobal:     raw.Strategy.Global != nil,
			},
		}
	}

	return m, nil
}
