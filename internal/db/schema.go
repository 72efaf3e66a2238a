package db

import (
	"net/url"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

func EnsureSchema(d *gorm.DB, schema string) error {
	return d.Exec(`CREATE SCHEMA IF NOT EXISTS ` + pq.QuoteIdentifier(schema)).Error
}

// WithSearchPath adds search_path to a postgres DSN so that unqualified table
// names resolve inside schema. Both URL and keyword/value DSNs are handled.
func WithSearchPath(dsn, schema string) string {
	if schema == "" {
		return dsn
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String()
	}

	return strings.TrimSpace(dsn) + " search_path=" + schema
}
