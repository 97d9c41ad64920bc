// Package ingest decodes journey exports in CSV, JSON, YAML and XLSX form,
// optionally zipped, into normalized journeys.
package ingest

import (
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// Format identifies a journey export encoding.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
	FormatZIP  Format = "zip"
)

// ErrUnknownFormat is returned when a format name or file extension is not
// supported.
var ErrUnknownFormat = eris.New("ingest: unknown format")

// Formats lists the formats accepted by ParseFormat.
func Formats() []Format {
	return []Format{FormatCSV, FormatTSV, FormatJSON, FormatYAML, FormatXLSX, FormatZIP}
}

// ParseFormat resolves a format name such as "csv" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return FormatCSV, nil
	case "tsv", "tab":
		return FormatTSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "xlsx":
		return FormatXLSX, nil
	case "zip":
		return FormatZIP, nil
	}
	return "", eris.Wrapf(ErrUnknownFormat, "ingest: parse format %q", s)
}

// DetectFormat picks the format from a file name's extension.
func DetectFormat(name string) (Format, error) {
	ext := path.Ext(name)
	if ext == "" {
		return "", eris.Wrapf(ErrUnknownFormat, "ingest: no extension on %q", name)
	}
	return ParseFormat(ext)
}
