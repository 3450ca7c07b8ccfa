package database

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxSalaryOpen stands in for the open upper bound of the top tax bracket.
const MaxSalaryOpen = 1e15

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'operator',
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		emp_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		department TEXT NOT NULL,
		position TEXT NOT NULL,
		base_salary REAL NOT NULL,
		hire_date TEXT NOT NULL,
		status TEXT NOT NULL,
		leave_date TEXT,
		contact TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		emp_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		note TEXT,
		FOREIGN KEY (emp_id) REFERENCES employees(emp_id)
	)`,
	`CREATE TABLE IF NOT EXISTS salaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		emp_id TEXT NOT NULL,
		month TEXT NOT NULL,
		base_salary REAL NOT NULL,
		bonus REAL DEFAULT 0,
		deduction REAL DEFAULT 0,
		final_salary REAL NOT NULL,
		payment_date TEXT,
		status TEXT DEFAULT 'unpaid',
		FOREIGN KEY (emp_id) REFERENCES employees(emp_id)
	)`,
	`CREATE TABLE IF NOT EXISTS revenue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		emp_id TEXT,
		amount REAL NOT NULL,
		description TEXT,
		added_by TEXT NOT NULL,
		FOREIGN KEY (added_by) REFERENCES users(username),
		FOREIGN KEY (emp_id) REFERENCES employees(emp_id)
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		category TEXT NOT NULL,
		amount REAL NOT NULL,
		description TEXT,
		added_by TEXT NOT NULL,
		FOREIGN KEY (added_by) REFERENCES users(username)
	)`,
	`CREATE TABLE IF NOT EXISTS tax_rates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		min_salary REAL NOT NULL,
		max_salary REAL NOT NULL,
		rate REAL NOT NULL,
		deduction REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS backups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		backup_time TEXT NOT NULL,
		file_path TEXT NOT NULL,
		size INTEGER NOT NULL,
		created_by TEXT NOT NULL,
		FOREIGN KEY (created_by) REFERENCES users(username)
	)`,
}

// defaultTaxBrackets is the progressive bracket table loaded at first
// initialization and never auto-updated thereafter.
var defaultTaxBrackets = []struct {
	Min, Max, Rate, Deduction float64
}{
	{0, 5000, 0, 0},
	{5000, 8000, 0.03, 0},
	{8000, 17000, 0.1, 210},
	{17000, 30000, 0.2, 1410},
	{30000, 40000, 0.25, 2660},
	{40000, 60000, 0.3, 4410},
	{60000, 85000, 0.35, 7160},
	{85000, MaxSalaryOpen, 0.45, 15160},
}

// Migrate creates the schema and seeds the default tax bracket table and
// the bootstrap admin user. Runs through the gated exec path, so startup
// must resolve time trust before calling this.
func (db *DB) Migrate(ctx context.Context, now string) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	if err := db.seedTaxBrackets(ctx); err != nil {
		return err
	}
	return db.seedDefaultAdmin(ctx, now)
}

func (db *DB) seedTaxBrackets(ctx context.Context) error {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM tax_rates"); err != nil {
		return fmt.Errorf("failed to check tax brackets: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, b := range defaultTaxBrackets {
		_, err := db.ExecContext(ctx,
			"INSERT INTO tax_rates (min_salary, max_salary, rate, deduction) VALUES (?, ?, ?, ?)",
			b.Min, b.Max, b.Rate, b.Deduction,
		)
		if err != nil {
			return fmt.Errorf("failed to seed tax brackets: %w", err)
		}
	}

	db.logger.Info().Int("brackets", len(defaultTaxBrackets)).Msg("seeded default tax bracket table")
	return nil
}

func (db *DB) seedDefaultAdmin(ctx context.Context, now string) error {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users WHERE role='admin'"); err != nil {
		return fmt.Errorf("failed to check admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO users (username, password, role, created_at) VALUES (?, ?, ?, ?)",
		"admin", string(hash), "admin", now,
	)
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	db.logger.Info().Msg("seeded bootstrap admin user")
	return nil
}
