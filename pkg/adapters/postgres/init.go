package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
)

// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/pgcatalog/pkg/adapters/postgres"
func init() {
	adapter.Register("postgres", func(connStr []string, options map[string]string, logger *slog.Logger) (adapter.Adapter, error) {
		return New(connStr, options, logger), nil
	})
}
