package database

import (
	"context"
	"database/sql"
	"fmt"

	"agrostat/models"
)

// UpsertBranchMunicipalities добавляет или обновляет записи филиалов по (filial, nome_municipio)
func (db *StatsDB) UpsertBranchMunicipalities(ctx context.Context, records []models.BranchMunicipality) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, db.rebind(`
		INSERT INTO municipios_filiais(filial, nome_municipio, uf, nome_normalizado)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(filial, nome_municipio) DO UPDATE SET
			uf = excluded.uf,
			nome_normalizado = excluded.nome_normalizado,
			updated_at = CURRENT_TIMESTAMP
	`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Branch, r.RawName, nullString(r.UF), r.NormalizedName); err != nil {
			return 0, fmt.Errorf("failed to upsert branch municipality %s/%s: %w", r.Branch, r.RawName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit branch municipalities: %w", err)
	}
	return len(records), nil
}

// ListBranchMunicipalities возвращает все записи филиалов
func (db *StatsDB) ListBranchMunicipalities(ctx context.Context) ([]models.BranchMunicipality, error) {
	return db.queryBranchMunicipalities(ctx, `
		SELECT id, filial, nome_municipio, uf, nome_normalizado, codigo_ibge, uf_resolvida, score
		FROM municipios_filiais
		ORDER BY id
	`)
}

// ListUnmatched возвращает записи без кода IBGE
func (db *StatsDB) ListUnmatched(ctx context.Context) ([]models.BranchMunicipality, error) {
	return db.queryBranchMunicipalities(ctx, `
		SELECT id, filial, nome_municipio, uf, nome_normalizado, codigo_ibge, uf_resolvida, score
		FROM municipios_filiais
		WHERE codigo_ibge IS NULL
		ORDER BY filial, nome_municipio
	`)
}

func (db *StatsDB) queryBranchMunicipalities(ctx context.Context, query string, args ...any) ([]models.BranchMunicipality, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query branch municipalities: %w", err)
	}
	defer rows.Close()

	var result []models.BranchMunicipality
	for rows.Next() {
		var (
			r          models.BranchMunicipality
			uf         sql.NullString
			code       sql.NullInt64
			resolvedUF sql.NullString
			score      sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Branch, &r.RawName, &uf, &r.NormalizedName, &code, &resolvedUF, &score); err != nil {
			return nil, fmt.Errorf("failed to scan branch municipality: %w", err)
		}
		r.UF = uf.String
		r.ResolvedUF = resolvedUF.String
		r.Score = score.Float64
		if code.Valid {
			c := int(code.Int64)
			r.ResolvedCode = &c
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// UpdateResolvedCodes записывает результаты сопоставления одной транзакцией
func (db *StatsDB) UpdateResolvedCodes(ctx context.Context, resolutions []models.Resolution) (int, error) {
	if len(resolutions) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, db.rebind(`
		UPDATE municipios_filiais
		SET codigo_ibge = ?, uf_resolvida = ?, score = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare update: %w", err)
	}
	defer stmt.Close()

	updated := 0
	for _, r := range resolutions {
		res, err := stmt.ExecContext(ctx, r.Code, r.UF, r.Score, r.RecordID)
		if err != nil {
			return 0, fmt.Errorf("failed to update record %d: %w", r.RecordID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read affected rows: %w", err)
		}
		updated += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit resolved codes: %w", err)
	}
	return updated, nil
}

// ListResolvedCodes возвращает уникальные коды IBGE по возрастанию
func (db *StatsDB) ListResolvedCodes(ctx context.Context) ([]int, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT codigo_ibge FROM municipios_filiais
		WHERE codigo_ibge IS NOT NULL
		ORDER BY codigo_ibge
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolved codes: %w", err)
	}
	defer rows.Close()

	var codes []int
	for rows.Next() {
		var code int
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// ListBranches возвращает названия филиалов
func (db *StatsDB) ListBranches(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT filial FROM municipios_filiais ORDER BY filial`)
	if err != nil {
		return nil, fmt.Errorf("failed to query branches: %w", err)
	}
	defer rows.Close()

	var branches []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("failed to scan branch: %w", err)
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}
