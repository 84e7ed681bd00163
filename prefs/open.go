package prefs

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Backends accepted by Open.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Options selects and configures a store.
type Options struct {
	Backend     string
	DatabaseURL string
	SQLitePath  string
}

// Open returns the store named by o.Backend.
func Open(ctx context.Context, o Options, log *zap.Logger) (Store, error) {
	switch o.Backend {
	case BackendPostgres:
		s, err := OpenPostgres(ctx, o.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := OpenSQLite(ctx, o.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("prefs: unknown backend %q", o.Backend)
	}
}
