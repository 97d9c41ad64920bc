package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/model"
)

// decodeZIP decodes the single export file inside a ZIP archive. The inner
// format comes from its extension; nested archives are rejected.
func decodeZIP(ctx context.Context, r io.Reader, opts Options) ([]model.Journey, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read zip")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open zip")
	}

	var files []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(path.Base(f.Name), ".") || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		files = append(files, f)
	}
	if len(files) != 1 {
		return nil, eris.Errorf("ingest: zip must hold exactly 1 export, got %d", len(files))
	}

	inner, err := DetectFormat(files[0].Name)
	if err != nil {
		return nil, err
	}
	if inner == FormatZIP {
		return nil, eris.Errorf("ingest: nested zip %q", files[0].Name)
	}

	rc, err := files[0].Open()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open zip entry")
	}
	defer rc.Close() //nolint:errcheck

	opts.Format = inner
	return Decode(ctx, rc, opts)
}
