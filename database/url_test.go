package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructDatabaseURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		dbName   string
		expected string
	}{
		{"no database name", "postgres://u:p@host:5432", "", "postgres://u:p@host:5432"},
		{"appends name and sslmode", "postgres://u:p@host:5432", "betledger", "postgres://u:p@host:5432/betledger?sslmode=disable"},
		{"trailing slash", "postgres://u:p@host:5432/", "betledger", "postgres://u:p@host:5432/betledger?sslmode=disable"},
		{"keeps query", "postgres://u:p@host:5432?connect_timeout=5", "betledger", "postgres://u:p@host:5432/betledger?connect_timeout=5&sslmode=disable"},
		{"keeps sslmode", "postgres://u:p@host:5432?sslmode=require", "betledger", "postgres://u:p@host:5432/betledger?sslmode=require"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConstructDatabaseURL(tt.baseURL, tt.dbName))
		})
	}
}
