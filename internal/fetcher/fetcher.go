// Package fetcher opens journey exports from local files, HTTP(S) and FTP.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/resilience"
)

// Fetcher downloads a remote resource.
type Fetcher interface {
	// Download fetches the URL and returns the response body. The caller
	// closes it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Options configures the fetchers behind Open.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RatePerSec float64
	Burst      int
	Breaker    resilience.BreakerConfig
}

// Opener dispatches journey sources to the right transport by URL scheme.
type Opener struct {
	http Fetcher
	ftp  Fetcher
}

// NewOpener creates an Opener with HTTP and FTP fetchers built from opts.
func NewOpener(opts Options) *Opener {
	return &Opener{
		http: NewHTTPFetcher(HTTPOptions{
			UserAgent:  opts.UserAgent,
			Timeout:    opts.Timeout,
			MaxRetries: opts.MaxRetries,
			RatePerSec: opts.RatePerSec,
			Burst:      opts.Burst,
			Breaker:    opts.Breaker,
		}),
		ftp: NewFTPFetcher(FTPOptions{
			Timeout:    opts.Timeout,
			MaxRetries: opts.MaxRetries,
		}),
	}
}

// Open returns a reader for source. A bare path or file:// URL is read from
// disk, http(s):// is downloaded with rate limiting and retries, and ftp://
// is retrieved with the credentials in the URL or anonymously.
func (o *Opener) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	switch Scheme(source) {
	case "", "file":
		return OpenFile(source)
	case "http", "https":
		return o.http.Download(ctx, source)
	case "ftp":
		return o.ftp.Download(ctx, source)
	default:
		return nil, eris.Errorf("fetcher: unsupported source scheme %q", Scheme(source))
	}
}

// Scheme returns the lowercase URL scheme of source, or "" for a plain path.
// Windows drive letters are treated as paths.
func Scheme(source string) string {
	i := strings.Index(source, "://")
	if i <= 1 {
		return ""
	}
	return strings.ToLower(source[:i])
}

// Name returns the file name of source without any query string, so callers
// can detect the format from its extension.
func Name(source string) string {
	if Scheme(source) == "" {
		return path.Base(strings.ReplaceAll(source, "\\", "/"))
	}
	u, err := url.Parse(source)
	if err != nil {
		return ""
	}
	return path.Base(u.Path)
}
