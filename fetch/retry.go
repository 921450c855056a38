package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultRetryAttempts количество попыток по умолчанию
	DefaultRetryAttempts = 6
	// DefaultRetryDelay задержка перед второй попыткой
	DefaultRetryDelay = time.Second
	// MaxRetryDelay максимальная задержка между попытками
	MaxRetryDelay = 20 * time.Second
)

// ErrExhausted все попытки запроса исчерпаны
var ErrExhausted = errors.New("fetch attempts exhausted")

// RetryConfig конфигурация экспоненциальных повторов
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig возвращает конфигурацию повторов по умолчанию
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultRetryAttempts,
		InitialDelay: DefaultRetryDelay,
		MaxDelay:     MaxRetryDelay,
		Multiplier:   2.0,
	}
}

// Delay задержка перед попыткой attempt+1 (attempt начинается с 1)
func (c RetryConfig) Delay(attempt int) time.Duration {
	delay := c.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * c.Multiplier)
		if delay >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

// StatusError ответ с неуспешным HTTP статусом
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.Code, e.URL)
}

// IsRetryableError проверяет, стоит ли повторить запрос после ошибки.
// Повторяются сетевые ошибки, 429 и 5xx; ошибки TLS и остальные 4xx не повторяются.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	if IsTLSError(err) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, net.ErrClosed)
}

// IsTLSError проверяет, вызвана ли ошибка рукопожатием или проверкой сертификата
func IsTLSError(err error) bool {
	if err == nil {
		return false
	}

	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	var alertErr tls.AlertError

	return errors.As(err, &certErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &alertErr)
}

// sleepContext ждет d или отмены контекста
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
