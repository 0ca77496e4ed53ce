// Package source turns configured source locations into local files.
//
// A location is one of:
//
//	path/to/file.csv            a local file
//	https://host/file.csv       downloaded over HTTP(S)
//	ftp://host/file.csv         downloaded over FTP
//	bundle:movies_metadata.csv  a member of the configured ZIP bundle
//
// Downloads and extractions land in the configured temp directory.
package source

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/movie-etl/internal/config"
	"github.com/sells-group/movie-etl/internal/etlerr"
	"github.com/sells-group/movie-etl/internal/fetcher"
	"github.com/sells-group/movie-etl/internal/resilience"
)

// BundlePrefix marks a location inside the ZIP bundle.
const BundlePrefix = "bundle:"

const stageResolve = "resolve source"

// Resolver resolves source locations to local paths.
type Resolver struct {
	bundle  string
	tempDir string
	http    fetcher.Fetcher
	ftp     fetcher.Fetcher
	log     *zap.Logger
}

// NewResolver builds a Resolver from the sources configuration.
func NewResolver(cfg config.SourcesConfig) *Resolver {
	retry := resilience.FromSourcesConfig(cfg)
	return &Resolver{
		bundle:  cfg.Bundle,
		tempDir: cfg.TempDir,
		http: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
			Retry:     retry,
			RateLimit: cfg.RateLimit,
		}),
		ftp: fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Timeout: cfg.Timeout,
			Retry:   retry,
		}),
		log: zap.L().With(zap.String("component", "source")),
	}
}

// Resolve returns a local path holding the data at loc. Every failure is a
// SourceUnavailable error.
func (r *Resolver) Resolve(ctx context.Context, loc string) (string, error) {
	p, err := r.resolve(ctx, loc, true)
	if err != nil {
		return "", etlerr.New(etlerr.SourceUnavailable, stageResolve, eris.Wrapf(err, "source: resolve %q", loc))
	}
	return p, nil
}

func (r *Resolver) resolve(ctx context.Context, loc string, allowBundle bool) (string, error) {
	if loc == "" {
		return "", eris.New("source: empty location")
	}
	if member, ok := strings.CutPrefix(loc, BundlePrefix); ok {
		if !allowBundle {
			return "", eris.New("source: the bundle cannot itself be a bundle member")
		}
		return r.fromBundle(ctx, member)
	}

	u, err := url.Parse(loc)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return r.download(ctx, r.http, u)
		case "ftp":
			return r.download(ctx, r.ftp, u)
		}
	}
	return local(loc)
}

func local(p string) (string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return "", eris.Wrap(err, "source: stat")
	}
	if info.IsDir() {
		return "", eris.Errorf("source: %s is a directory", p)
	}
	return p, nil
}

func (r *Resolver) download(ctx context.Context, f fetcher.Fetcher, u *url.URL) (string, error) {
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", eris.Errorf("source: no file name in %s", u.Redacted())
	}
	if err := os.MkdirAll(r.tempDir, 0o755); err != nil {
		return "", eris.Wrap(err, "source: create temp dir")
	}
	dest := filepath.Join(r.tempDir, name)

	r.log.Info("downloading source", zap.String("url", u.Redacted()), zap.String("dest", dest))
	n, err := f.DownloadToFile(ctx, u.String(), dest)
	if err != nil {
		return "", err
	}
	r.log.Info("downloaded source", zap.String("dest", dest), zap.Int64("bytes", n))
	return dest, nil
}

func (r *Resolver) fromBundle(ctx context.Context, member string) (string, error) {
	if r.bundle == "" {
		return "", eris.Errorf("source: %s%s requested but no bundle is configured", BundlePrefix, member)
	}
	archive, err := r.resolve(ctx, r.bundle, false)
	if err != nil {
		return "", eris.Wrap(err, "source: resolve bundle")
	}

	dest := filepath.Join(r.tempDir, "bundle")
	out, err := fetcher.ExtractZIPFile(archive, member, dest)
	if err != nil {
		if members, listErr := fetcher.ZIPMembers(archive); listErr == nil {
			return "", eris.Wrapf(err, "source: bundle members are %s", strings.Join(members, ", "))
		}
		return "", err
	}
	r.log.Info("extracted bundle member", zap.String("member", member), zap.String("path", out))
	return out, nil
}
