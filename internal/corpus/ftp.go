package corpus

import (
	"context"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/formworks/formfill-cli/internal/config"
	"github.com/formworks/formfill-cli/internal/resilience"
)

// FTPInbox drains a scan-to-FTP inbox into a local staging directory so
// the directory loader can pick the files up. Office scanners deliver
// their output this way.
type FTPInbox struct {
	cfg config.FTPConfig
}

// NewFTPInbox creates an inbox fetcher. A zero Timeout defaults to 30s;
// empty credentials fall back to anonymous login.
func NewFTPInbox(cfg config.FTPConfig) *FTPInbox {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.User == "" {
		cfg.User = "anonymous"
		cfg.Password = "anonymous@"
	}
	return &FTPInbox{cfg: cfg}
}

// Drain downloads every file from the inbox directory into destDir and
// returns the staged paths in name order. Files already present locally
// are not fetched again, so repeated drains are cheap. Each download is
// retried once on transient network failure.
func (f *FTPInbox) Drain(ctx context.Context, destDir string) ([]string, error) {
	addr := dialAddr(f.cfg.Addr)
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(f.cfg.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: ftp dial %s", addr)
	}
	defer conn.Quit()

	if err := conn.Login(f.cfg.User, f.cfg.Password); err != nil {
		return nil, eris.Wrap(err, "corpus: ftp login")
	}

	entries, err := conn.List(f.cfg.Dir)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: ftp list %s", f.cfg.Dir)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "corpus: create staging dir %s", destDir)
	}

	var names []string
	for _, e := range entries {
		if e.Type == ftp.EntryTypeFile {
			names = append(names, e.Name)
		}
	}
	sort.Strings(names)

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("ftp", "retrieve")

	staged := make([]string, 0, len(names))
	for _, name := range names {
		dest := filepath.Join(destDir, name)
		if _, err := os.Stat(dest); err == nil {
			zap.L().Debug("corpus: inbox file already staged", zap.String("file", name))
			staged = append(staged, dest)
			continue
		}
		err := resilience.Do(ctx, retry, func(ctx context.Context) error {
			return retrieve(conn, path.Join(f.cfg.Dir, name), dest)
		})
		if err != nil {
			return staged, eris.Wrapf(err, "corpus: ftp retrieve %s", name)
		}
		staged = append(staged, dest)
	}

	zap.L().Info("corpus: ftp inbox drained",
		zap.String("dir", f.cfg.Dir),
		zap.Int("files", len(staged)))
	return staged, nil
}

// dialAddr appends the default FTP port when addr carries none.
func dialAddr(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return net.JoinHostPort(addr, "21")
	}
	return addr
}

func retrieve(conn *ftp.ServerConn, remote, dest string) error {
	resp, err := conn.Retr(remote)
	if err != nil {
		return eris.Wrapf(err, "retr %s", remote)
	}
	defer resp.Close()

	file, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "create %s", dest)
	}
	if _, err := io.Copy(file, resp); err != nil {
		file.Close()
		os.Remove(dest)
		return eris.Wrapf(err, "write %s", dest)
	}
	return file.Close()
}
