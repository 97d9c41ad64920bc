package fetcher

import (
	"io"
	"net/url"
	"os"

	"github.com/rotisserie/eris"
)

// OpenFile opens a local path or file:// URL.
func OpenFile(source string) (io.ReadCloser, error) {
	p := source
	if Scheme(source) == "file" {
		u, err := url.Parse(source)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: parse file url")
		}
		p = u.Path
	}
	if p == "" {
		return nil, eris.New("fetcher: empty file path")
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", p)
	}
	return f, nil
}
