package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
)

// FTPOptions configures the FTP source fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher pulls contractor CSV drops from an FTP site. Credentials ride
// in the URL userinfo; anonymous login is the default.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates an FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

// Download retrieves an ftp:// URL and returns the file body. Closing the
// returned reader also quits the FTP session.
func (f *FTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "ftp: parse url %s", rawURL)
	}
	if u.Scheme != "ftp" {
		return nil, eris.Errorf("ftp: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" {
		return nil, eris.New("ftp: empty path in url")
	}

	host := u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	conn, err := ftp.Dial(host, ftp.DialWithContext(ctx), ftp.DialWithTimeout(f.opts.Timeout))
	if err != nil {
		return nil, eris.Wrapf(err, "ftp: dial %s", host)
	}

	user, pass := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		conn.Quit()
		return nil, eris.Wrapf(err, "ftp: login %s", host)
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		conn.Quit()
		return nil, eris.Wrapf(err, "ftp: retrieve %s", u.Path)
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// ftpConnReader ties the response body to the session so one Close tears
// down both.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	err := r.resp.Close()
	if quitErr := r.conn.Quit(); err == nil {
		err = quitErr
	}
	return err
}
