package database

import (
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()
	
	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})
	
	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})
	
	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()
	
	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})
	
	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if result {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})
	
	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "postgres"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectPgx(t *testing.T) {
	dialect := NewPgxDialect()

	if got := dialect.DriverName(); got != "pgx" {
		t.Errorf("DriverName() = %v, want pgx", got)
	}
	if got := dialect.MigrationsSubdir(); got != "postgres" {
		t.Errorf("MigrationsSubdir() = %v, want postgres", got)
	}
	if got := dialect.RewriteQuery("SELECT 1 WHERE a = ?"); got != "SELECT 1 WHERE a = $1" {
		t.Errorf("RewriteQuery() = %v", got)
	}
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()
	
	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})
	
	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})
	
	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "mysql"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO users (name, email) VALUES (?, ?)",
			expected: "INSERT INTO users (name, email) VALUES ($1, $2)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE users SET name = ?, email = ? WHERE id = ?",
			expected: "UPDATE users SET name = ?, email = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestUpsertClause(t *testing.T) {
	cols := []string{"school_name", "city"}

	tests := []struct {
		name     string
		dialect  Dialect
		expected string
	}{
		{
			name:     "SQLite",
			dialect:  NewSQLiteDialect(),
			expected: " ON CONFLICT (user_id) DO UPDATE SET school_name = excluded.school_name, city = excluded.city",
		},
		{
			name:     "PostgreSQL",
			dialect:  NewPostgresDialect(),
			expected: " ON CONFLICT (user_id) DO UPDATE SET school_name = excluded.school_name, city = excluded.city",
		},
		{
			name:     "MySQL",
			dialect:  NewMySQLDialect(),
			expected: " ON DUPLICATE KEY UPDATE school_name = VALUES(school_name), city = VALUES(city)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.UpsertClause("user_id", cols); got != tt.expected {
				t.Errorf("UpsertClause() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestMySQLDSNParseTime(t *testing.T) {
	dialect := NewMySQLDialect()

	tests := []struct {
		url      string
		expected string
	}{
		{"user:pw@tcp(db:3306)/fun", "user:pw@tcp(db:3306)/fun?parseTime=true"},
		{"user:pw@tcp(db:3306)/fun?charset=utf8mb4", "user:pw@tcp(db:3306)/fun?charset=utf8mb4&parseTime=true"},
		{"user:pw@tcp(db:3306)/fun?parseTime=true", "user:pw@tcp(db:3306)/fun?parseTime=true"},
	}

	for _, tt := range tests {
		if got := dialect.DSN(DialectConfig{URL: tt.url}); got != tt.expected {
			t.Errorf("DSN(%q) = %q, want %q", tt.url, got, tt.expected)
		}
	}
}
