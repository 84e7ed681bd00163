package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	sqliteSchema = `
CREATE TABLE IF NOT EXISTS user_preferences (
    id TEXT PRIMARY KEY,
    cookie_id TEXT NOT NULL UNIQUE,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    gender TEXT NOT NULL CHECK (gender IN ('boy', 'girl', 'other')),
    main_language TEXT NOT NULL,
    preferred_language TEXT NOT NULL,
    age INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

	sqliteGetQuery = `
SELECT first_name, last_name, gender, main_language, preferred_language, age
FROM user_preferences WHERE cookie_id = ?`

	sqliteUpsertQuery = `
INSERT INTO user_preferences (id, cookie_id, first_name, last_name, gender, main_language, preferred_language, age)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (cookie_id) DO UPDATE SET
    first_name = excluded.first_name,
    last_name = excluded.last_name,
    gender = excluded.gender,
    main_language = excluded.main_language,
    preferred_language = excluded.preferred_language,
    age = excluded.age,
    updated_at = CURRENT_TIMESTAMP`
)

// SQLiteStore keeps preferences in a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string, log *zap.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// One writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db, log: log.Named("sqlite_prefs")}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, identity string) (*Preferences, error) {
	if identity == "" {
		return nil, ErrNoIdentity
	}
	var p Preferences
	if err := sqlscan.Get(ctx, s.db, &p, sqliteGetQuery, identity); err != nil {
		if sqlscan.NotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.log.Error("Error getting preferences", zap.Error(err))
		return nil, fmt.Errorf("getting preferences: %w", err)
	}
	return &p, nil
}

func (s *SQLiteStore) Put(ctx context.Context, identity string, p Preferences) error {
	if err := prepare(identity, &p); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, sqliteUpsertQuery, uuid.NewString(), identity,
		p.FirstName, p.LastName, string(p.Gender), p.MainLanguage, p.PreferredLanguage, p.Age)
	if err != nil {
		s.log.Error("Error saving preferences", zap.Error(err))
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
