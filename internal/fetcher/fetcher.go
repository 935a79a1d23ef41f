// Package fetcher opens the contractor CSV feed and the campaign JSON
// database from local paths, HTTP(S) URLs, or FTP drops, and parses them
// into raw rows and canonical campaign records.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Open resolves a source reference to a reader. Plain paths open local
// files; http(s):// and ftp:// sources are downloaded.
func Open(ctx context.Context, source string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return NewHTTPFetcher(HTTPOptions{}).Download(ctx, source)
	case strings.HasPrefix(source, "ftp://"):
		return NewFTPFetcher(FTPOptions{}).Download(ctx, source)
	default:
		if _, err := url.Parse(source); err == nil && strings.Contains(source, "://") {
			return nil, eris.Errorf("fetcher: unsupported scheme in %q", source)
		}
		f, err := os.Open(source)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", source)
		}
		return f, nil
	}
}
