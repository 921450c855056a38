package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"agrostat/database"
	"agrostat/fetch"
	"agrostat/localidades"
	"agrostat/matching"
	"agrostat/sidra"
)

// Config конфигурация сервиса и сборщика
type Config struct {
	// Сервер
	Port string `json:"port"`

	// База данных: путь SQLite или DSN postgres://
	DatabaseURL     string        `json:"database_url"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`

	// Логирование
	LogLevel string `json:"log_level"`

	// Входные и выходные файлы
	DataDir     string `json:"data_dir"`
	CatalogPath string `json:"catalog_path"`

	// API IBGE
	SidraBaseURL       string        `json:"sidra_base_url"`
	LocalidadesBaseURL string        `json:"localidades_base_url"`
	ForceHTTP          bool          `json:"force_http"`
	InsecureSkipVerify bool          `json:"insecure_skip_verify"`
	HTTPTimeout        time.Duration `json:"http_timeout"`
	FetchMaxAttempts   int           `json:"fetch_max_attempts"`
	FetchInitialDelay  time.Duration `json:"fetch_initial_delay"`
	FetchMaxDelay      time.Duration `json:"fetch_max_delay"`
	FetchRatePerSec    float64       `json:"fetch_rate_per_sec"`

	// Сопоставление и сбор
	MatchScoreThreshold   float64  `json:"match_score_threshold"`
	MunicipalityBatchSize int      `json:"municipality_batch_size"`
	CategoryBatchSize     int      `json:"category_batch_size"`
	CollectConcurrency    int      `json:"collect_concurrency"`
	CollectPeriod         string   `json:"collect_period"`
	AllowedUFs            []string `json:"allowed_ufs"`
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port: getEnv("SERVER_PORT", "8000"),

		DatabaseURL:     getEnv("DATABASE_URL", "agrostat.db"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		DataDir:     getEnv("DATA_DIR", "./data"),
		CatalogPath: getEnv("CATALOG_PATH", ""),

		SidraBaseURL:       getEnv("SIDRA_BASE_URL", sidra.DefaultBaseURL),
		LocalidadesBaseURL: getEnv("LOCALIDADES_BASE_URL", localidades.DefaultBaseURL),
		ForceHTTP:          getEnvBool("IBGE_FORCE_HTTP", false),
		InsecureSkipVerify: getEnvBool("IBGE_SSL_NO_VERIFY", false),
		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 60*time.Second),
		FetchMaxAttempts:   getEnvInt("FETCH_MAX_ATTEMPTS", fetch.DefaultRetryConfig().MaxAttempts),
		FetchInitialDelay:  getEnvDuration("FETCH_INITIAL_DELAY", fetch.DefaultRetryConfig().InitialDelay),
		FetchMaxDelay:      getEnvDuration("FETCH_MAX_DELAY", fetch.DefaultRetryConfig().MaxDelay),
		FetchRatePerSec:    getEnvFloat("FETCH_RATE_PER_SEC", 2),

		MatchScoreThreshold:   getEnvFloat("MATCH_SCORE_THRESHOLD", matching.DefaultThreshold),
		MunicipalityBatchSize: getEnvInt("MUNICIPALITY_BATCH_SIZE", sidra.DefaultMunicipalityBatch),
		CategoryBatchSize:     getEnvInt("CATEGORY_BATCH_SIZE", sidra.DefaultCategoryBatch),
		CollectConcurrency:    getEnvInt("COLLECT_CONCURRENCY", 1),
		CollectPeriod:         getEnv("COLLECT_PERIOD", sidra.DefaultPeriod),
		AllowedUFs:            getEnvList("ALLOWED_UFS", []string{"RS", "SC", "PR"}),
	}
	return cfg, nil
}

// FetchConfig параметры HTTP-клиента IBGE
func (c *Config) FetchConfig() fetch.Config {
	retry := fetch.DefaultRetryConfig()
	retry.MaxAttempts = c.FetchMaxAttempts
	retry.InitialDelay = c.FetchInitialDelay
	retry.MaxDelay = c.FetchMaxDelay

	return fetch.Config{
		Timeout:            c.HTTPTimeout,
		Retry:              retry,
		RateLimit:          rate.Limit(c.FetchRatePerSec),
		ForceHTTP:          c.ForceHTTP,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
}

// DBConfig параметры пула соединений
func (c *Config) DBConfig() database.DBConfig {
	return database.DBConfig{
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// BatchSizes размеры пакетов планировщика
func (c *Config) BatchSizes() sidra.BatchSizes {
	return sidra.BatchSizes{
		Municipalities: c.MunicipalityBatchSize,
		Categories:     c.CategoryBatchSize,
	}
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64 или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как Duration или возвращает значение по умолчанию
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvBool принимает 1/true/yes/on
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "":
		return defaultValue
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// getEnvList разбирает список через запятую в верхнем регистре
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.ToUpper(strings.TrimSpace(item)); item != "" {
			list = append(list, item)
		}
	}
	return list
}
