package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"
)

const migrationsTableName = "schema_migrations"

// migration именованная однократная миграция
type migration struct {
	name  string
	apply func(ctx context.Context, db *StatsDB) error
}

// ensureMigrationTable создает таблицу schema_migrations при необходимости
func (db *StatsDB) ensureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, migrationsTableName)

	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}
	return nil
}

// isMigrationApplied проверяет, была ли миграция уже применена
func (db *StatsDB) isMigrationApplied(ctx context.Context, name string) (bool, error) {
	var appliedAt sql.NullTime
	query := db.rebind(fmt.Sprintf(`SELECT applied_at FROM %s WHERE name = ?`, migrationsTableName))
	err := db.conn.QueryRowContext(ctx, query, name).Scan(&appliedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}
	return appliedAt.Valid, nil
}

// markMigrationApplied сохраняет отметку о миграции
func (db *StatsDB) markMigrationApplied(ctx context.Context, name string) error {
	query := db.rebind(fmt.Sprintf(`
		INSERT INTO %s(name, applied_at) VALUES(?, ?)
		ON CONFLICT(name) DO UPDATE SET applied_at = excluded.applied_at
	`, migrationsTableName))
	if _, err := db.conn.ExecContext(ctx, query, name, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to mark migration %s as applied: %w", name, err)
	}
	return nil
}

// ensureMigrationApplied выполняет миграцию только один раз
func (db *StatsDB) ensureMigrationApplied(ctx context.Context, m migration) error {
	applied, err := db.isMigrationApplied(ctx, m.name)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	if err := m.apply(ctx, db); err != nil {
		return fmt.Errorf("migration %s failed: %w", m.name, err)
	}
	if err := db.markMigrationApplied(ctx, m.name); err != nil {
		return err
	}

	log.Printf("[Migrations] %s applied successfully", m.name)
	return nil
}

// AppliedMigrations возвращает имена примененных миграций
func (db *StatsDB) AppliedMigrations(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(`SELECT name FROM %s ORDER BY name`, migrationsTableName))
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
