package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"agrostat/models"
)

// DuplicateCode код IBGE, сопоставленный нескольким филиалам
type DuplicateCode struct {
	Code        int      `json:"codigo"`
	Branches    []string `json:"filiais"`
	Names       []string `json:"nomes"`
	UFs         []string `json:"ufs"`
	Occurrences int      `json:"ocorrencias"`
}

// Status сводка состояния хранилища
type Status struct {
	Total          int            `json:"total"`
	WithCode       int            `json:"com_codigo"`
	WithoutCode    int            `json:"sem_codigo"`
	DuplicateCodes int            `json:"codigos_duplicados"`
	LastYear       int            `json:"ultimo_ano,omitempty"`
	RowsBySource   map[string]int `json:"linhas_por_fonte"`
}

// ReportRow строка отчета филиала: муниципалитет и значение продукта
type ReportRow struct {
	Branch           string   `json:"filial"`
	MunicipalityName string   `json:"nome_municipio"`
	MunicipalityCode *int     `json:"codigo_ibge,omitempty"`
	Product          string   `json:"produto,omitempty"`
	Value            *float64 `json:"valor,omitempty"`
	Unit             string   `json:"unidade,omitempty"`
}

// LookupEntry сопоставление кода IBGE с названием в филиале
type LookupEntry struct {
	Code   int    `json:"codigo"`
	Name   string `json:"nome_municipio"`
	UF     string `json:"uf"`
	Branch string `json:"filial"`
}

// DuplicateCodes возвращает коды, встречающиеся более чем в одном филиале
func (db *StatsDB) DuplicateCodes(ctx context.Context) ([]DuplicateCode, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT codigo_ibge, filial, nome_municipio, COALESCE(uf_resolvida, uf, '')
		FROM municipios_filiais
		WHERE codigo_ibge IN (
			SELECT codigo_ibge FROM municipios_filiais
			WHERE codigo_ibge IS NOT NULL
			GROUP BY codigo_ibge
			HAVING COUNT(DISTINCT filial) > 1
		)
		ORDER BY codigo_ibge, filial, nome_municipio
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate codes: %w", err)
	}
	defer rows.Close()

	var result []DuplicateCode
	index := make(map[int]int)
	for rows.Next() {
		var code int
		var branch, name, uf string
		if err := rows.Scan(&code, &branch, &name, &uf); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate code: %w", err)
		}

		i, ok := index[code]
		if !ok {
			i = len(result)
			index[code] = i
			result = append(result, DuplicateCode{Code: code})
		}
		d := &result[i]
		d.Branches = appendUnique(d.Branches, branch)
		d.Names = appendUnique(d.Names, name)
		d.UFs = appendUnique(d.UFs, uf)
		d.Occurrences++
	}
	return result, rows.Err()
}

// Status собирает сводку: записи, коды, дубликаты, последний год и строки по источникам
func (db *StatsDB) Status(ctx context.Context) (Status, error) {
	st := Status{RowsBySource: map[string]int{}}

	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(codigo_ibge) FROM municipios_filiais
	`).Scan(&st.Total, &st.WithCode)
	if err != nil {
		return st, fmt.Errorf("failed to count branch municipalities: %w", err)
	}
	st.WithoutCode = st.Total - st.WithCode

	dups, err := db.DuplicateCodes(ctx)
	if err != nil {
		return st, err
	}
	st.DuplicateCodes = len(dups)

	year, ok, err := db.LastYear(ctx)
	if err != nil {
		return st, err
	}
	if !ok {
		return st, nil
	}
	st.LastYear = year

	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT fonte, COUNT(*) FROM sidra_observacoes WHERE ano = ? GROUP BY fonte
	`), year)
	if err != nil {
		return st, fmt.Errorf("failed to count observations by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return st, fmt.Errorf("failed to scan source count: %w", err)
		}
		st.RowsBySource[source] = n
	}
	return st, rows.Err()
}

// LastYear возвращает последний год с наблюдениями
func (db *StatsDB) LastYear(ctx context.Context) (int, bool, error) {
	var year sql.NullInt64
	if err := db.conn.QueryRowContext(ctx, `SELECT MAX(ano) FROM sidra_observacoes`).Scan(&year); err != nil {
		return 0, false, fmt.Errorf("failed to query last year: %w", err)
	}
	return int(year.Int64), year.Valid, nil
}

// ListProducts возвращает названия продуктов с наблюдениями за год
func (db *StatsDB) ListProducts(ctx context.Context, year int) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT DISTINCT produto_nome FROM sidra_observacoes
		WHERE ano = ? AND produto_nome <> ''
		ORDER BY produto_nome
	`), year)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// BranchReport возвращает муниципалитеты филиала с наблюдениями за год.
// Муниципалитеты без данных попадают в отчет с пустым продуктом.
func (db *StatsDB) BranchReport(ctx context.Context, branch string, year int) ([]ReportRow, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT mf.filial, mf.nome_municipio, mf.codigo_ibge, o.produto_nome, o.valor_num, o.unidade
		FROM municipios_filiais mf
		LEFT JOIN sidra_observacoes o ON o.cod_municipio = mf.codigo_ibge AND o.ano = ?
		WHERE mf.filial = ?
		ORDER BY mf.nome_municipio, o.produto_nome
	`), year, branch)
	if err != nil {
		return nil, fmt.Errorf("failed to query branch report: %w", err)
	}
	defer rows.Close()

	var result []ReportRow
	for rows.Next() {
		var (
			r       ReportRow
			code    sql.NullInt64
			product sql.NullString
			value   sql.NullFloat64
			unit    sql.NullString
		)
		if err := rows.Scan(&r.Branch, &r.MunicipalityName, &code, &product, &value, &unit); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		if code.Valid {
			c := int(code.Int64)
			r.MunicipalityCode = &c
		}
		r.Product = product.String
		r.Unit = unit.String
		if value.Valid {
			v := value.Float64
			r.Value = &v
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// LookupEntries возвращает все сопоставленные записи для файлов соответствия
func (db *StatsDB) LookupEntries(ctx context.Context) ([]LookupEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT codigo_ibge, nome_municipio, COALESCE(uf_resolvida, uf, ''), filial
		FROM municipios_filiais
		WHERE codigo_ibge IS NOT NULL
		ORDER BY codigo_ibge, filial, nome_municipio
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookup entries: %w", err)
	}
	defer rows.Close()

	var result []LookupEntry
	for rows.Next() {
		var e LookupEntry
		if err := rows.Scan(&e.Code, &e.Name, &e.UF, &e.Branch); err != nil {
			return nil, fmt.Errorf("failed to scan lookup entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// SaveCollectionRun сохраняет итог запуска сбора
func (db *StatsDB) SaveCollectionRun(ctx context.Context, run models.CollectionRun) error {
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO coletas(run_id, started_at, finished_at, upserted, resumo)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			upserted = excluded.upserted,
			resumo = excluded.resumo
	`), run.RunID, run.StartedAt, run.FinishedAt, run.Upserted, run.Summary)
	if err != nil {
		return fmt.Errorf("failed to save collection run %s: %w", run.RunID, err)
	}
	return nil
}

// ListCollectionRuns возвращает последние запуски, новые первыми
func (db *StatsDB) ListCollectionRuns(ctx context.Context, limit int) ([]models.CollectionRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT run_id, started_at, finished_at, upserted, resumo
		FROM coletas ORDER BY started_at DESC LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection runs: %w", err)
	}
	defer rows.Close()

	var runs []models.CollectionRun
	for rows.Next() {
		var r models.CollectionRun
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.Upserted, &r.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan collection run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func appendUnique(list []string, v string) []string {
	i := sort.SearchStrings(list, v)
	if i < len(list) && list[i] == v {
		return list
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}
