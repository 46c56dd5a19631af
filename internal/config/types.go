package config

import "time"

// strategyFile is the on-disk YAML shape for one strategy definition file,
// mirroring domain.Strategy field-for-field.
type strategyFile struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Family string `yaml:"family"`
	Engine string `yaml:"engine"`
	Modes  struct {
		SupportsPerService bool `yaml:"supports_per_service"`
		SupportsGlobal     bool `yaml:"supports_global"`
	} `yaml:"modes"`
	PerService *launchTemplateFile `yaml:"per_service"`
	Global     *launchTemplateFile `yaml:"global"`
	WeightHint float64             `yaml:"weight_hint"`
}

type launchTemplateFile struct {
	Binary         string            `yaml:"binary"`
	Args           []string          `yaml:"args"`
	Env            map[string]string `yaml:"env"`
	LogPath        string            `yaml:"log_path"`
	RequiresAdmin  bool              `yaml:"requires_admin"`
	PriorityHint   string            `yaml:"priority_hint"`
	TargetServices []string          `yaml:"target_services"`
}

// serviceFile is the on-disk YAML shape for one service definition file,
// mirroring domain.Service.
type serviceFile struct {
	ID             string           `yaml:"id"`
	Name           string           `yaml:"name"`
	Critical       bool             `yaml:"critical"`
	DefaultEnabled bool             `yaml:"default_enabled"`
	Tests          []testFile       `yaml:"tests"`
}

type testFile struct {
	Kind           string   `yaml:"kind"`
	URL            string   `yaml:"url"`
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	Domain         string   `yaml:"domain"`
	TimeoutSeconds float64  `yaml:"timeout_seconds"`
	AcceptedStatus []int    `yaml:"accepted_status"`
	MinBodySize    *int     `yaml:"min_body_size"`
}

func (t testFile) timeout() time.Duration {
	if t.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(t.TimeoutSeconds * float64(time.Second))
}
