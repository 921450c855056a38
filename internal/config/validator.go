package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"agrostat/localidades"
)

// Validate проверяет корректность конфигурации и собирает все ошибки
func (c *Config) Validate() error {
	var errors []string

	// Валидация порта
	if c.Port == "" {
		errors = append(errors, "port is required")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid port: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("port must be between 1 and 65535, got %d", port))
		}
	}

	if c.DatabaseURL == "" {
		errors = append(errors, "database url is required")
	}

	// Валидация connection pooling
	if c.MaxOpenConns < 1 {
		errors = append(errors, "max open connections must be at least 1")
	}
	if c.MaxIdleConns < 1 {
		errors = append(errors, "max idle connections must be at least 1")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		errors = append(errors, "max idle connections cannot be greater than max open connections")
	}
	if c.ConnMaxLifetime < time.Second {
		errors = append(errors, "connection max lifetime must be at least 1 second")
	}

	// Валидация уровня логирования
	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if c.LogLevel != "" {
		valid := false
		logLevelUpper := strings.ToUpper(c.LogLevel)
		for _, level := range validLogLevels {
			if logLevelUpper == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("invalid log level: %s (valid: %s)",
				c.LogLevel, strings.Join(validLogLevels, ", ")))
		}
	}

	if c.DataDir == "" {
		errors = append(errors, "data dir is required")
	}

	// Валидация клиента IBGE
	if c.SidraBaseURL == "" || c.LocalidadesBaseURL == "" {
		errors = append(errors, "IBGE base urls are required")
	}
	if c.HTTPTimeout < time.Second {
		errors = append(errors, "http timeout must be at least 1 second")
	}
	if c.FetchMaxAttempts < 1 {
		errors = append(errors, "fetch max attempts must be at least 1")
	}
	if c.FetchInitialDelay <= 0 || c.FetchMaxDelay < c.FetchInitialDelay {
		errors = append(errors, "fetch delays must be positive and max delay not below initial delay")
	}
	if c.FetchRatePerSec <= 0 {
		errors = append(errors, "fetch rate must be positive")
	}

	// Валидация сопоставления и сбора
	if c.MatchScoreThreshold < 0 || c.MatchScoreThreshold > 100 {
		errors = append(errors, fmt.Sprintf("match score threshold must be between 0 and 100, got %g", c.MatchScoreThreshold))
	}
	if c.MunicipalityBatchSize < 1 || c.CategoryBatchSize < 1 {
		errors = append(errors, "batch sizes must be at least 1")
	}
	if c.CollectConcurrency < 1 {
		errors = append(errors, "collect concurrency must be at least 1")
	}
	if c.CollectPeriod == "" {
		errors = append(errors, "collect period is required")
	}
	for _, uf := range c.AllowedUFs {
		if _, ok := localidades.UFCodes[uf]; !ok {
			errors = append(errors, fmt.Sprintf("unknown uf in allowed ufs: %s", uf))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}
