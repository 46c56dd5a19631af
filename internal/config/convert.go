package config

import (
	"fmt"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/errkit"
)

func (f strategyFile) toDomain() (domain.Strategy, error) {
	if f.ID == "" {
		return domain.Strategy{}, errkit.Validation("id", "strategy id is required")
	}
	s := domain.Strategy{
		ID:     f.ID,
		Name:   f.Name,
		Family: domain.Family(f.Family),
		Engine: f.Engine,
		Modes: domain.ModeCapabilities{
			SupportsPerService: f.Modes.SupportsPerService,
			SupportsGlobal:     f.Modes.SupportsGlobal,
		},
		PerService: f.PerService.toDomain(),
		Global:     f.Global.toDomain(),
		WeightHint: f.WeightHint,
	}
	if _, err := s.Validate(); err != nil {
		return domain.Strategy{}, err
	}
	return s, nil
}

func (f *launchTemplateFile) toDomain() *domain.LaunchTemplate {
	if f == nil {
		return nil
	}
	return &domain.LaunchTemplate{
		Binary:         f.Binary,
		Args:           f.Args,
		Env:            f.Env,
		LogPath:        f.LogPath,
		RequiresAdmin:  f.RequiresAdmin,
		PriorityHint:   f.PriorityHint,
		TargetServices: f.TargetServices,
	}
}

func (f serviceFile) toDomain() (domain.Service, error) {
	if f.ID == "" {
		return domain.Service{}, errkit.Validation("id", "service id is required")
	}
	tests := make([]domain.TestDefinition, 0, len(f.Tests))
	for _, t := range f.Tests {
		td, err := t.toDomain()
		if err != nil {
			return domain.Service{}, fmt.Errorf("service %s: %w", f.ID, err)
		}
		tests = append(tests, td)
	}
	svc := domain.Service{
		ID:             f.ID,
		Name:           f.Name,
		Critical:       f.Critical,
		DefaultEnabled: f.DefaultEnabled,
		Tests:          tests,
	}
	if err := svc.Validate(); err != nil {
		return domain.Service{}, err
	}
	return svc, nil
}

func (t testFile) toDomain() (domain.TestDefinition, error) {
	kind := domain.TestKind(t.Kind)
	switch kind {
	case domain.TestHTTPSGet, domain.TestHTTPSHead, domain.TestTCPConnect, domain.TestDNS, domain.TestWebSocket:
	default:
		return domain.TestDefinition{}, errkit.Validation("kind", "unknown test kind: "+t.Kind)
	}
	return domain.TestDefinition{
		Kind:           kind,
		URL:            t.URL,
		Host:           t.Host,
		Port:           t.Port,
		Domain:         t.Domain,
		Timeout:        t.timeout(),
		AcceptedStatus: t.AcceptedStatus,
		MinBodySize:    t.MinBodySize,
	}, nil
}
