package fetch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultUserAgent заголовок User-Agent для запросов к сервисам IBGE
const DefaultUserAgent = "agrostat/1.0 (+https://servicodados.ibge.gov.br)"

// Fetcher получает JSON-документ по URL
type Fetcher interface {
	FetchJSON(ctx context.Context, rawURL string, out any) error
}

// Config конфигурация HTTPFetcher
type Config struct {
	Timeout            time.Duration
	Retry              RetryConfig
	RateLimit          rate.Limit
	Burst              int
	UserAgent          string
	ForceHTTP          bool
	InsecureSkipVerify bool
	Logger             *slog.Logger
}

// HTTPFetcher HTTP-клиент с ограничением частоты, повторами и откатом на http://
type HTTPFetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
	userAgent  string
	forceHTTP  bool
	logger     *slog.Logger
}

// NewHTTPFetcher создает клиент; нулевые поля конфигурации заменяются значениями по умолчанию
func NewHTTPFetcher(config Config) *HTTPFetcher {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.Retry.MaxAttempts == 0 {
		config.Retry = DefaultRetryConfig()
	}
	if config.Retry.Multiplier == 0 {
		config.Retry.Multiplier = 2.0
	}
	if config.RateLimit == 0 {
		config.RateLimit = rate.Limit(2)
	}
	if config.Burst == 0 {
		config.Burst = 1
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via IBGE_SSL_NO_VERIFY
	}

	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		limiter:   rate.NewLimiter(config.RateLimit, config.Burst),
		retry:     config.Retry,
		userAgent: config.UserAgent,
		forceHTTP: config.ForceHTTP,
		logger:    config.Logger,
	}
}

// FetchJSON выполняет GET с повторами и декодирует JSON в out.
// Если HTTPS не проходит из-за TLS, запрос повторяется по http://.
func (f *HTTPFetcher) FetchJSON(ctx context.Context, rawURL string, out any) error {
	target := rawURL
	if f.forceHTTP {
		target = downgradeScheme(rawURL)
	}

	body, err := f.getWithRetry(ctx, target)
	if err != nil && IsTLSError(err) && strings.HasPrefix(target, "https://") {
		fallback := downgradeScheme(target)
		f.logger.Warn("TLS failure, falling back to plain HTTP",
			"url", target,
			"error", err,
		)
		body, err = f.getWithRetry(ctx, fallback)
		target = fallback
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", target, err)
	}
	return nil
}

// getWithRetry выполняет GET с экспоненциальной задержкой между попытками
func (f *HTTPFetcher) getWithRetry(ctx context.Context, target string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= f.retry.MaxAttempts; attempt++ {
		body, err := f.get(ctx, target)
		if err == nil {
			if attempt > 1 {
				f.logger.Info("request succeeded after retries", "url", target, "attempts", attempt)
			}
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("request to %s cancelled: %w", target, ctx.Err())
		}
		if !IsRetryableError(err) {
			return nil, err
		}

		if attempt < f.retry.MaxAttempts {
			delay := f.retry.Delay(attempt)
			f.logger.Warn("request failed, retrying",
				"url", target,
				"attempt", attempt,
				"max_attempts", f.retry.MaxAttempts,
				"delay", delay,
				"error", err,
			)
			if err := sleepContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("request to %s cancelled: %w", target, err)
			}
		}
	}

	return nil, fmt.Errorf("%w after %d attempts for %s: %w", ErrExhausted, f.retry.MaxAttempts, target, lastErr)
}

// get выполняет одну попытку запроса
func (f *HTTPFetcher) get(ctx context.Context, target string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: target, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// downgradeScheme заменяет https:// на http://
func downgradeScheme(rawURL string) string {
	if strings.HasPrefix(rawURL, "https://") {
		return "http://" + strings.TrimPrefix(rawURL, "https://")
	}
	return rawURL
}
