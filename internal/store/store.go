// Package store implements the embedded persistent relational store.
// All SQL is serialised behind a single mutex standing in for an
// async-mutex-guarded connection. This package has no internal concurrency
// of its own, so every caller gets the same linearised view of the database.
package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/errkit"
	"github.com/whitebite/isolate-core/internal/store/migrations"
)

// Store is the embedded relational store. dsn is a local sqlite file path
//.
type Store struct {
	db     *sqlx.DB
	cipher Cipher
	mu     sync.Mutex
}

// Open opens (creating if absent) the sqlite file at dsn and applies every
// pending migration.
func Open(ctx context.Context, dsn string, cipher Cipher) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errkit.Wrap(errkit.KindStorage, "open store", err)
	}
	db.SetMaxOpenConns(1) // sqlite: one writer; serialises at the driver too

	if err := migrations.Apply(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, errkit.Wrap(errkit.KindStorage, "apply migrations", err)
	}

	return &Store{db: db, cipher: cipher}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertProxy inserts or replaces a proxy row. If cfg.Active is true, every
// other proxy's active flag is cleared in the same transaction. The
// plaintext password never reaches disk: encryption failure aborts the
// write entirely rather than falling back to plaintext.
func (s *Store) UpsertProxy(ctx context.Context, cfg domain.ProxyConfig, plaintextPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var encrypted []byte
	if plaintextPassword != "" {
		ct, err := s.cipher.Encrypt([]byte(plaintextPassword))
		if err != nil {
			return errkit.Wrap(errkit.KindStorage, "encrypt proxy password", err)
		}
		encrypted = ct
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errkit.Wrap(errkit.KindStorage, "begin tx", err)
	}
	defer tx.Rollback()

	if cfg.Active {
		if _, err := tx.ExecContext(ctx, `UPDATE proxies SET active = 0`); err != nil {
			return errkit.Wrap(errkit.KindStorage, "clear active proxies", err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO proxies (id, name, protocol, server, port, username, password_encrypted,
			uuid, tls, sni, transport, custom_fields, active, created_at, updated_at)
		VALUES (:id, :name, :protocol, :server, :port, :username, :password_encrypted,
			:uuid, :tls, :sni, :transport, :custom_fields, :active, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, protocol=excluded.protocol, server=excluded.server,
			port=excluded.port, username=excluded.username,
			password_encrypted=COALESCE(excluded.password_encrypted, proxies.password_encrypted),
			uuid=excluded.uuid, tls=excluded.tls, sni=excluded.sni, transport=excluded.transport,
			custom_fields=excluded.custom_fields, active=excluded.active, updated_at=excluded.updated_at
	`, proxyRow{
		ID: cfg.ID, Name: cfg.Name, Protocol: string(cfg.Protocol), Server: cfg.Server,
		Port: cfg.Port, Username: cfg.Username, PasswordEncrypted: encrypted, UUID: cfg.UUID,
		TLS: boolToInt(cfg.TLS), SNI: cfg.SNI, Transport: cfg.Transport,
		CustomFields: cfg.CustomFieldsRaw, Active: boolToInt(cfg.Active),
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		return errkit.Wrap(errkit.KindStorage, "upsert proxy", err)
	}

	if err := tx.Commit(); err != nil {
		return errkit.Wrap(errkit.KindStorage, "commit proxy upsert", err)
	}
	return nil
}

// proxyRow is the sqlx named-parameter row shape for proxies; kept
// separate from domain.ProxyConfig so the store package owns the on-disk
// encoding (bool-as-int, encrypted blob) without leaking it into domain.
type proxyRow struct {
	ID                string `db:"id"`
	Name              string `db:"name"`
	Protocol          string `db:"protocol"`
	Server            string `db:"server"`
	Port              int    `db:"port"`
	Username          string `db:"username"`
	PasswordEncrypted []byte `db:"password_encrypted"`
	UUID              string `db:"uuid"`
	TLS               int    `db:"tls"`
	SNI               string `db:"sni"`
	Transport         string `db:"transport"`
	CustomFields      string `db:"custom_fields"`
	Active            int    `db:"active"`
	CreatedAt         string `db:"created_at"`
	UpdatedAt         string `db:"updated_at"`
}

// GetProxy reads one proxy row and decrypts its password.
func (s *Store) GetProxy(ctx context.Context, id string) (domain.ProxyConfig, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row proxyRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM proxies WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return domain.ProxyConfig{}, "", errkit.NotFound("proxy", id)
	}
	if err != nil {
		return domain.ProxyConfig{}, "", errkit.Wrap(errkit.KindStorage, "get proxy", err)
	}

	plaintext := ""
	if len(row.PasswordEncrypted) > 0 {
		pt, err := s.cipher.Decrypt(row.PasswordEncrypted)
		if err != nil {
			return domain.ProxyConfig{}, "", errkit.Wrap(errkit.KindStorage, "decrypt proxy password", err)
		}
		plaintext = string(pt)
	}

	return rowToProxy(row), plaintext, nil
}

// ListProxies returns every proxy row (passwords left encrypted — callers
// that need the plaintext must GetProxy individually).
func (s *Store) ListProxies(ctx context.Context) ([]domain.ProxyConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []proxyRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM proxies ORDER BY created_at`); err != nil {
		return nil, errkit.Wrap(errkit.KindStorage, "list proxies", err)
	}
	out := make([]domain.ProxyConfig, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToProxy(r))
	}
	return out, nil
}

func rowToProxy(row proxyRow) domain.ProxyConfig {
	proxy := domain.ProxyConfig{
		ID: row.ID, Name: row.Name, Protocol: domain.ProxyProtocol(row.Protocol),
		Server: row.Server, Port: row.Port, Username: row.Username, UUID: row.UUID,
		TLS: row.TLS != 0, SNI: row.SNI, Transport: row.Transport,
		CustomFieldsRaw: row.CustomFields, Active: row.Active != 0,
	}
	if t, err := time.Parse(time.RFC3339, row.CreatedAt); err == nil {
		proxy.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, row.UpdatedAt); err == nil {
		proxy.UpdatedAt = t
	}
	return proxy
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
