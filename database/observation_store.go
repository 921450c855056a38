package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"agrostat/models"
)

// UpsertObservations записывает наблюдения одной транзакцией.
// При конфликте натурального ключа обновляются только значение и единица.
func (db *StatsDB) UpsertObservations(ctx context.Context, observations []models.Observation) (int, error) {
	if len(observations) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, db.rebind(`
		INSERT INTO sidra_observacoes(
			tabela, variavel, ano, cod_municipio, nome_municipio,
			produto_codigo, produto_nome, unidade, valor_str, valor_num, fonte
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tabela, variavel, ano, cod_municipio, produto_codigo) DO UPDATE SET
			valor_str = excluded.valor_str,
			valor_num = excluded.valor_num,
			unidade = excluded.unidade,
			updated_at = CURRENT_TIMESTAMP
	`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare observation upsert: %w", err)
	}
	defer stmt.Close()

	for _, o := range observations {
		key := o.Key()
		var raw sql.NullString
		if o.RawValue != nil {
			raw = sql.NullString{String: *o.RawValue, Valid: true}
		}
		var num sql.NullFloat64
		if o.NumericValue != nil {
			num = sql.NullFloat64{Float64: *o.NumericValue, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			key.TableID, key.VariableID, key.Year, key.MunicipalityCode, o.MunicipalityName,
			key.CategoryID, o.CategoryName, o.Unit, raw, num, o.SourceTag,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert observation %+v: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit observations: %w", err)
	}
	return len(observations), nil
}

// ObservationFilter фильтр выборки наблюдений; нулевые поля не фильтруют
type ObservationFilter struct {
	TableID          int
	Year             int
	MunicipalityCode int
	Source           string
}

// ListObservations возвращает наблюдения по фильтру
func (db *StatsDB) ListObservations(ctx context.Context, filter ObservationFilter) ([]models.Observation, error) {
	var where []string
	var args []any
	if filter.TableID != 0 {
		where = append(where, "tabela = ?")
		args = append(args, filter.TableID)
	}
	if filter.Year != 0 {
		where = append(where, "ano = ?")
		args = append(args, filter.Year)
	}
	if filter.MunicipalityCode != 0 {
		where = append(where, "cod_municipio = ?")
		args = append(args, filter.MunicipalityCode)
	}
	if filter.Source != "" {
		where = append(where, "fonte = ?")
		args = append(args, filter.Source)
	}

	query := `SELECT tabela, variavel, ano, cod_municipio, nome_municipio, produto_codigo,
		produto_nome, unidade, valor_str, valor_num, fonte FROM sidra_observacoes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY tabela, ano, cod_municipio, produto_codigo"

	rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var result []models.Observation
	for rows.Next() {
		var (
			o     models.Observation
			catID int
			raw   sql.NullString
			num   sql.NullFloat64
		)
		if err := rows.Scan(&o.TableID, &o.VariableID, &o.Year, &o.MunicipalityCode, &o.MunicipalityName,
			&catID, &o.CategoryName, &o.Unit, &raw, &num, &o.SourceTag); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		if catID != 0 {
			o.CategoryID = &catID
		}
		if raw.Valid {
			o.RawValue = &raw.String
		}
		if num.Valid {
			o.NumericValue = &num.Float64
		}
		result = append(result, o)
	}
	return result, rows.Err()
}
