package resilience

import (
	"errors"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"syscall"
)

// TransientError marks a failure that is safe to retry, such as an HTTP 429
// or 5xx response.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as transient. StatusCode is the HTTP or FTP
// reply code that caused it, or 0.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransient reports whether err is worth retrying: an explicit
// TransientError, a network timeout, a reset or refused connection, an FTP
// 4xx reply, or a message matching a known transient pattern.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// FTP 4xx replies are transient negative completions.
	var ftpErr *textproto.Error
	if errors.As(err, &ftpErr) && ftpErr.Code >= 400 && ftpErr.Code < 500 {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status is worth retrying.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
