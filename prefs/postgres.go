package prefs

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	pgGetQuery = `
SELECT first_name, last_name, gender, main_language, preferred_language, age
FROM user_preferences WHERE cookie_id = $1`

	pgUpsertQuery = `
INSERT INTO user_preferences (cookie_id, first_name, last_name, gender, main_language, preferred_language, age)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (cookie_id) DO UPDATE SET
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    gender = EXCLUDED.gender,
    main_language = EXCLUDED.main_language,
    preferred_language = EXCLUDED.preferred_language,
    age = EXCLUDED.age,
    updated_at = CURRENT_TIMESTAMP`
)

// PostgresStore keeps preferences in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// OpenPostgres connects to dsn and applies pending migrations.
func OpenPostgres(ctx context.Context, dsn string, log *zap.Logger) (*PostgresStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := ApplyMigrations(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool, log: log.Named("postgres_prefs")}, nil
}

// ApplyMigrations brings the schema up to date.
func ApplyMigrations(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, identity string) (*Preferences, error) {
	if identity == "" {
		return nil, ErrNoIdentity
	}
	log := s.log.With(zap.String("identity", identity))
	var p Preferences
	if err := pgxscan.Get(ctx, s.pool, &p, pgGetQuery, identity); err != nil {
		if pgxscan.NotFound(err) || errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		log.Error("Error getting preferences", zap.Error(err))
		return nil, fmt.Errorf("getting preferences: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) Put(ctx context.Context, identity string, p Preferences) error {
	if err := prepare(identity, &p); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, pgUpsertQuery, identity,
		p.FirstName, p.LastName, string(p.Gender), p.MainLanguage, p.PreferredLanguage, p.Age)
	if err != nil {
		s.log.Error("Error saving preferences", zap.String("identity", identity), zap.Error(err))
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
