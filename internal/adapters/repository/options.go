package repository

import "time"

// PostgresOption applies a configuration option to the PostgresStore.
type PostgresOption func(*PostgresStore)

// WithMaxOpenConns caps the connection pool.
func WithMaxOpenConns(n int) PostgresOption {
	return func(s *PostgresStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithConnMaxLifetime recycles pooled connections after d.
func WithConnMaxLifetime(d time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		if d > 0 {
			s.connMaxLifetime = d
		}
	}
}

// WithoutMigrations skips schema creation on open.
func WithoutMigrations() PostgresOption {
	return func(s *PostgresStore) {
		s.migrate = false
	}
}
