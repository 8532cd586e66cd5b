package adapter_test

import (
	"testing"

	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/pgcatalog/pkg/adapters/postgres"
)

func TestPostgresSelfRegistration(t *testing.T) {
	assert.True(t, adapter.IsRegistered("postgres"), "postgres adapter should be auto-registered")
	assert.Contains(t, adapter.ListAdapters(), "postgres")
}

func TestIsRegistered(t *testing.T) {
	tests := []struct {
		name        string
		adapterName string
		expected    bool
	}{
		{"postgres registered", "postgres", true},
		{"unknown not registered", "unknown_db", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.IsRegistered(tt.adapterName))
		})
	}
}

func TestNewAdapter_Postgres(t *testing.T) {
	adp, err := adapter.NewAdapter("postgres", []string{"postgresql://db.example.com/app"}, map[string]string{"port": "6543"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "db.example.com:6543/app", adp.ConnectionID())
	assert.NotEmpty(t, adp.Options())
}
