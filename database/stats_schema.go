package database

import (
	"context"
	"fmt"
	"strings"
)

// statsSchema DDL хранилища; {{id}}, {{float}} подставляются по диалекту
var statsSchema = []string{
	`CREATE TABLE IF NOT EXISTS municipios_filiais (
		id {{id}},
		filial TEXT NOT NULL,
		nome_municipio TEXT NOT NULL,
		uf TEXT,
		nome_normalizado TEXT NOT NULL DEFAULT '',
		codigo_ibge INTEGER,
		uf_resolvida TEXT,
		score {{float}},
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(filial, nome_municipio)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_municipios_filiais_codigo ON municipios_filiais(codigo_ibge)`,
	`CREATE TABLE IF NOT EXISTS sidra_observacoes (
		id {{id}},
		tabela INTEGER NOT NULL,
		variavel INTEGER NOT NULL,
		ano INTEGER NOT NULL,
		cod_municipio INTEGER NOT NULL,
		nome_municipio TEXT NOT NULL DEFAULT '',
		produto_codigo INTEGER NOT NULL DEFAULT 0,
		produto_nome TEXT NOT NULL DEFAULT '',
		unidade TEXT NOT NULL DEFAULT '',
		valor_str TEXT,
		valor_num {{float}},
		fonte TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(tabela, variavel, ano, cod_municipio, produto_codigo)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sidra_observacoes_municipio_ano ON sidra_observacoes(cod_municipio, ano)`,
	`CREATE TABLE IF NOT EXISTS coletas (
		run_id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		upserted INTEGER NOT NULL DEFAULT 0,
		resumo TEXT NOT NULL DEFAULT ''
	)`,
}

// InitSchema создает таблицы и индексы
func (db *StatsDB) InitSchema(ctx context.Context) error {
	replacer := db.ddlReplacer()
	for _, stmt := range statsSchema {
		if _, err := db.conn.ExecContext(ctx, replacer.Replace(stmt)); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (db *StatsDB) ddlReplacer() *strings.Replacer {
	if db.dialect == DialectPostgres {
		return strings.NewReplacer("{{id}}", "BIGSERIAL PRIMARY KEY", "{{float}}", "DOUBLE PRECISION")
	}
	return strings.NewReplacer("{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT", "{{float}}", "REAL")
}
