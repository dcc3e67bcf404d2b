// Package source loads address index rows from CSV, TSV, XLSX, or YAML
// files on disk, over HTTP, or over FTP.
package source

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geotarget/internal/model"
	"github.com/sells-group/geotarget/internal/resilience"
)

// Format names a source encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
	FormatYAML Format = "yaml"
)

// DetectFormat picks a format from the location's file extension.
func DetectFormat(location string) (Format, error) {
	p := location
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", eris.Errorf("source: cannot infer format of %q; pass one explicitly", location)
}

// Options configures a Loader.
type Options struct {
	// Format overrides extension-based detection.
	Format Format
	// Sheet selects an XLSX sheet by name.
	Sheet string
	// DefaultCountry fills rows without a country. Defaults to "US".
	DefaultCountry string
	Timeout        time.Duration
}

type downloader interface {
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Loader reads index rows from a location.
type Loader struct {
	opts Options
	http downloader
	ftp  downloader
}

// NewLoader creates a Loader.
func NewLoader(opts Options) *Loader {
	if opts.DefaultCountry == "" {
		opts.DefaultCountry = "US"
	}
	return &Loader{
		opts: opts,
		http: NewHTTPFetcher(opts.Timeout, resilience.DefaultPolicy()),
		ftp:  NewFTPFetcher(opts.Timeout),
	}
}

// Load reads every row from location, a file path or an http(s):// or
// ftp:// URL. Rows are returned as read; uniqueness is enforced by the index.
func (l *Loader) Load(ctx context.Context, location string) ([]model.AddressMapping, error) {
	format := l.opts.Format
	if format == "" {
		var err error
		if format, err = DetectFormat(location); err != nil {
			return nil, err
		}
	}

	body, err := l.open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	rows, err := l.parse(ctx, format, body)
	if err != nil {
		return nil, eris.Wrapf(err, "source: load %s", location)
	}
	zap.L().Info("source: loaded rows",
		zap.String("location", location),
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

func (l *Loader) open(ctx context.Context, location string) (io.ReadCloser, error) {
	u, err := url.Parse(location)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l.http.Download(ctx, location)
		case "ftp":
			return l.ftp.Download(ctx, location)
		case "file":
			location = u.Path
		}
	}
	f, err := os.Open(location)
	if err != nil {
		return nil, eris.Wrap(err, "source: open file")
	}
	return f, nil
}

func (l *Loader) parse(ctx context.Context, format Format, r io.Reader) ([]model.AddressMapping, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(ctx, r, ',', l.opts.DefaultCountry)
	case FormatTSV:
		return ParseCSV(ctx, r, '\t', l.opts.DefaultCountry)
	case FormatYAML:
		return ParseYAML(r, l.opts.DefaultCountry)
	case FormatXLSX:
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r); err != nil {
			return nil, eris.Wrap(err, "source: read xlsx")
		}
		return ParseXLSX(buf.Bytes(), l.opts.Sheet, l.opts.DefaultCountry)
	}
	return nil, eris.Errorf("source: unsupported format %q", format)
}
