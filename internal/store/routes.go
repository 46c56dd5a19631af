package store

import (
	"context"
	"database/sql"

	"github.com/whitebite/isolate-core/internal/errkit"
)

// SetDomainRoute pins domain to proxyID, replacing any existing route.
func (s *Store) SetDomainRoute(ctx context.Context, domainName, proxyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO domain_routes (domain, proxy_id) VALUES (?, ?)
		ON CONFLICT(domain) DO UPDATE SET proxy_id = excluded.proxy_id
	`, domainName, proxyID)
	if err != nil {
		return errkit.Wrap(errkit.KindStorage, "set domain route", err)
	}
	return nil
}

// GetDomainRoute returns the proxy id routed for domain, or not-found.
func (s *Store) GetDomainRoute(ctx context.Context, domainName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var proxyID string
	err := s.db.GetContext(ctx, &proxyID, `SELECT proxy_id FROM domain_routes WHERE domain = ?`, domainName)
	if err == sql.ErrNoRows {
		return "", errkit.NotFound("domain_route", domainName)
	}
	if err != nil {
		return "", errkit.Wrap(errkit.KindStorage, "get domain route", err)
	}
	return proxyID, nil
}

// SetAppRoute pins appPath/appName to proxyID.
func (s *Store) SetAppRoute(ctx context.Context, appPath, appName, proxyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_routes (app_path, app_name, proxy_id) VALUES (?, ?, ?)
		ON CONFLICT(app_path) DO UPDATE SET app_name = excluded.app_name, proxy_id = excluded.proxy_id
	`, appPath, appName, proxyID)
	if err != nil {
		return errkit.Wrap(errkit.KindStorage, "set app route", err)
	}
	return nil
}

// GetAppRoute returns the proxy id routed for appPath, or not-found.
func (s *Store) GetAppRoute(ctx context.Context, appPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var proxyID string
	err := s.db.GetContext(ctx, &proxyID, `SELECT proxy_id FROM app_routes WHERE app_path = ?`, appPath)
	if err == sql.ErrNoRows {
		return "", errkit.NotFound("app_route", appPath)
	}
	if err != nil {
		return "", errkit.Wrap(errkit.KindStorage, "get app route", err)
	}
	return proxyID, nil
}
