package database

import (
	"context"
	"fmt"

	"agrostat/normalization"
)

// statsMigrations миграции данных в порядке применения
var statsMigrations = []migration{
	{name: "001_backfill_normalized_names", apply: backfillNormalizedNames},
	{name: "002_observations_source_index", apply: createSourceIndex},
}

// Migrate применяет недостающие миграции
func (db *StatsDB) Migrate(ctx context.Context) error {
	if err := db.ensureMigrationTable(ctx); err != nil {
		return err
	}
	for _, m := range statsMigrations {
		if err := db.ensureMigrationApplied(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// backfillNormalizedNames заполняет nome_normalizado у записей, импортированных без него
func backfillNormalizedNames(ctx context.Context, db *StatsDB) error {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, nome_municipio FROM municipios_filiais WHERE nome_normalizado = ''`)
	if err != nil {
		return fmt.Errorf("failed to query records without normalized name: %w", err)
	}

	type pending struct {
		id   int64
		name string
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan record: %w", err)
		}
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(todo) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, db.rebind(`UPDATE municipios_filiais SET nome_normalizado = ? WHERE id = ?`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range todo {
		if _, err := stmt.ExecContext(ctx, normalization.NormalizeName(p.name), p.id); err != nil {
			return fmt.Errorf("failed to update record %d: %w", p.id, err)
		}
	}
	return tx.Commit()
}

func createSourceIndex(ctx context.Context, db *StatsDB) error {
	_, err := db.conn.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_sidra_observacoes_fonte_ano ON sidra_observacoes(fonte, ano)`)
	return err
}
