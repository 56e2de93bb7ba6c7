package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		database DatabaseConfig
		expected string
	}{
		{
			name: "fully configured",
			database: DatabaseConfig{
				Host:         "db.internal",
				Port:         "3307",
				Username:     "roomly",
				Password:     "secret",
				DatabaseName: "roomly_db",
			},
			expected: "roomly:secret@tcp(db.internal:3307)/roomly_db?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			name: "defaults applied for host and port",
			database: DatabaseConfig{
				Username:     "roomly",
				Password:     "secret",
				DatabaseName: "roomly_db",
			},
			expected: "roomly:secret@tcp(localhost:3306)/roomly_db?charset=utf8mb4&parseTime=True&loc=Local",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Database: tt.database}
			assert.Equal(t, tt.expected, cfg.DSN())
		})
	}
}
