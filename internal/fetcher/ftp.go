package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/resilience"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout    time.Duration
	MaxRetries int
}

// FTPFetcher retrieves journey exports over FTP.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

type ftpTarget struct {
	host     string
	path     string
	user     string
	password string
}

// parseFTPURL extracts host (with port), path and login from an FTP URL.
// Without userinfo the anonymous login is used.
func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "fetcher: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("fetcher: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpTarget{}, eris.New("fetcher: empty path in ftp url")
	}

	t := ftpTarget{host: u.Host, path: u.Path, user: "anonymous", password: "anonymous@"}
	if _, _, splitErr := net.SplitHostPort(t.host); splitErr != nil {
		t.host = net.JoinHostPort(t.host, "21")
	}
	if u.User != nil && u.User.Username() != "" {
		t.user = u.User.Username()
		t.password, _ = u.User.Password()
	}
	return t, nil
}

// ftpConnReader closes the FTP response and the control connection together.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "fetcher: close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "fetcher: quit ftp connection")
	}
	return nil
}

// Download logs in, retrieves the file and returns a reader that holds the
// connection open until closed. Dial and login are retried on transient
// failures; a missing file is not.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	target, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("fetcher: ftp connecting", zap.String("host", target.host), zap.String("path", target.path))

	cfg := resilience.FromAttempts(f.opts.MaxRetries, "ftp login")
	conn, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*ftp.ServerConn, error) {
		conn, err := ftp.Dial(target.host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: ftp dial")
		}
		if err := conn.Login(target.user, target.password); err != nil {
			_ = conn.Quit()
			return nil, eris.Wrap(err, "fetcher: ftp login")
		}
		return conn, nil
	})
	if err != nil {
		return nil, err
	}

	resp, err := conn.Retr(target.path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "fetcher: ftp retrieve")
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}
