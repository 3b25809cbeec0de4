package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteDSN(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "empty", value: "", want: "''"},
		{name: "plain", value: "localhost", want: "localhost"},
		{name: "hostname with dots and dashes", value: "db-1.internal", want: "db-1.internal"},
		{name: "space forces quoting", value: "pass word", want: "'pass word'"},
		{name: "single quote escaped", value: "it's", want: `'it\'s'`},
		{name: "backslash escaped", value: `a\b`, want: `'a\\b'`},
		{name: "equals sign quoted", value: "a=b", want: "'a=b'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quoteDSN(tt.value))
		})
	}
}

func TestDSNFromFields(t *testing.T) {
	cfg := &Config{
		Host:     "localhost",
		Port:     5432,
		Database: "lmscache",
		Username: "app",
		Password: "s3cret pass",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=app password='s3cret pass' dbname=lmscache sslmode=disable",
		cfg.dsn())
}

func TestDSNConnectionStringWins(t *testing.T) {
	cfg := &Config{
		Host:             "ignored",
		ConnectionString: "postgres://app:pw@db.internal:5432/lmscache",
	}

	assert.Equal(t, "postgres://app:pw@db.internal:5432/lmscache", cfg.dsn())
}

func TestDSNOmitsEmptySSLMode(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 5432, Database: "lms", Username: "app"}
	assert.NotContains(t, cfg.dsn(), "sslmode")
}
