package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// DBConfig конфигурация пула соединений
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Dialect диалект SQL хранилища
type Dialect int

const (
	// DialectSQLite SQLite через mattn/go-sqlite3
	DialectSQLite Dialect = iota
	// DialectPostgres PostgreSQL через pgx
	DialectPostgres
)

func (d Dialect) String() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// StatsDB хранилище филиалов, наблюдений SIDRA и журнала запусков
type StatsDB struct {
	conn    *sql.DB
	dialect Dialect
}

// NewStatsDB открывает хранилище с настройками по умолчанию
func NewStatsDB(dsn string) (*StatsDB, error) {
	return NewStatsDBWithConfig(dsn, DBConfig{})
}

// NewStatsDBWithConfig открывает хранилище. DSN вида postgres://... выбирает PostgreSQL,
// иначе DSN трактуется как путь к файлу SQLite.
func NewStatsDBWithConfig(dsn string, config DBConfig) (*StatsDB, error) {
	dialect := DialectSQLite
	driver := "sqlite3"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialect = DialectPostgres
		driver = "pgx"
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}

	// Для SQLite в памяти каждое соединение видит свою базу
	if dialect == DialectSQLite && isMemoryDSN(dsn) {
		conn.SetMaxOpenConns(1)
	} else if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		conn.SetMaxOpenConns(25)
	}

	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(5)
	}

	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping stats database: %w", err)
	}

	if dialect == DialectSQLite {
		for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
			if _, err := conn.Exec(pragma); err != nil {
				log.Printf("Warning: failed to apply %q: %v", pragma, err)
			}
		}
	}

	db := &StatsDB{conn: conn, dialect: dialect}

	if err := db.InitSchema(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize stats schema: %w", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		log.Printf("Warning: failed to run stats migrations: %v", err)
	}

	return db, nil
}

// Close закрывает соединение
func (db *StatsDB) Close() error {
	return db.conn.Close()
}

// GetDB возвращает *sql.DB для прямого доступа
func (db *StatsDB) GetDB() *sql.DB {
	return db.conn
}

// Dialect диалект хранилища
func (db *StatsDB) Dialect() Dialect {
	return db.dialect
}

// Ping проверяет доступность базы
func (db *StatsDB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// rebind заменяет плейсхолдеры ? на $n для PostgreSQL
func (db *StatsDB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
