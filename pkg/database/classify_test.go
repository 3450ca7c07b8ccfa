package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		query string
		kind  Kind
	}{
		{"select", "SELECT * FROM employees", KindRead},
		{"select lowercase", "select 1", KindRead},
		{"pragma", "PRAGMA foreign_keys", KindRead},
		{"insert", "INSERT INTO salaries (emp_id) VALUES (?)", KindWrite},
		{"insert lowercase", "insert into revenue values (?)", KindWrite},
		{"update", "UPDATE employees SET name = ?", KindWrite},
		{"delete", "DELETE FROM expenses WHERE id = ?", KindWrite},
		{"create table", "CREATE TABLE IF NOT EXISTS t (id INTEGER)", KindWrite},
		{"drop", "DROP TABLE t", KindWrite},
		{"alter", "ALTER TABLE t ADD COLUMN c TEXT", KindWrite},
		{"leading whitespace", "  \n\tINSERT INTO t VALUES (1)", KindWrite},
		{"empty", "", KindRead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, Classify(tt.query))
		})
	}
}
