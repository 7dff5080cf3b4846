// Package fetch executes request candidates in order against remote origins,
// falling back to the local content root when every remote candidate fails.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/streamvault/mediagate/internal/config"
	"github.com/streamvault/mediagate/internal/pathmap"
)

const userAgent = "mediagate/1.0"

// Request describes one content read to resolve across candidates.
type Request struct {
	Method      string
	ContentPath string
	RangeHeader string
	Candidates  []pathmap.Candidate
	// Admin credential applied only to candidates that require auth.
	AdminUser     string
	AdminPassword string
	Host          string
}

// Result is the winning candidate's response. Body is the live stream; the
// caller owns it and must close it.
type Result struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
}

// NotFoundError reports a read that failed on every candidate, including the
// local fallback. Attempted never contains credentials.
type NotFoundError struct {
	Host      string
	Attempted []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("content not found on %s (tried %d locations)", e.Host, len(e.Attempted))
}

// Fetcher resolves content reads over the candidate list.
type Fetcher struct {
	client         *http.Client
	contentRoot    string
	primaryTimeout time.Duration
	probeTimeout   time.Duration
	logger         *slog.Logger
}

func NewFetcher(log *slog.Logger, originCfg config.OriginConfig, storageCfg config.StorageConfig) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		client:         &http.Client{},
		contentRoot:    storageCfg.ContentRoot,
		primaryTimeout: time.Duration(originCfg.PrimaryTimeoutSeconds) * time.Second,
		probeTimeout:   time.Duration(originCfg.ProbeTimeoutSeconds) * time.Second,
		logger:         log.With(slog.String("service", "fetch")),
	}
}

// Fetch tries each candidate exactly once, strictly in order, and returns the
// first success verbatim. After the supplied candidates it evaluates the local
// filesystem equivalent of the content path through the same loop, so remote
// and local reads share one range-handling code path.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	candidates := append([]pathmap.Candidate(nil), req.Candidates...)
	candidates = append(candidates, pathmap.Candidate{
		Kind:      pathmap.KindLocal,
		LocalPath: localPath(f.contentRoot, req.ContentPath),
	})

	attempted := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		switch candidate.Kind {
		case pathmap.KindLocal:
			attempted = append(attempted, "file://"+candidate.LocalPath)
			result, err := f.serveLocal(candidate.LocalPath, req.ContentPath, req.RangeHeader)
			if err != nil {
				f.logger.Debug("local fallback miss",
					slog.String("path", candidate.LocalPath),
					slog.Any("error", err),
				)
				continue
			}
			f.logger.Info("serving from local content root", slog.String("path", req.ContentPath))
			return result, nil
		default:
			attempted = append(attempted, candidate.URL)
			result, err := f.fetchRemote(ctx, req, candidate)
			if err != nil {
				f.logger.Debug("candidate failed",
					slog.String("url", candidate.URL),
					slog.Any("error", err),
				)
				continue
			}
			return result, nil
		}
	}

	return nil, &NotFoundError{Host: req.Host, Attempted: attempted}
}

// fetchRemote issues one request for the candidate. The timeout bounds time to
// response headers only; the body stream stays open until the caller closes it.
func (f *Fetcher) fetchRemote(ctx context.Context, req Request, candidate pathmap.Candidate) (*Result, error) {
	timeout := f.probeTimeout
	if candidate.Primary {
		timeout = f.primaryTimeout
	}

	reqCtx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(timeout, cancel)

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	outbound, err := http.NewRequestWithContext(reqCtx, method, candidate.URL, nil)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, fmt.Errorf("build request: %w", err)
	}
	if req.RangeHeader != "" {
		outbound.Header.Set("Range", req.RangeHeader)
	}
	outbound.Header.Set("User-Agent", userAgent)
	outbound.Header.Set("Accept", "*/*")
	outbound.Header.Set("Cache-Control", "no-cache")
	if candidate.RequiresAuth {
		outbound.SetBasicAuth(req.AdminUser, req.AdminPassword)
	}

	resp, err := f.client.Do(outbound)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, err
	}
	timer.Stop()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("origin returned %s", resp.Status)
	}

	return &Result{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   &cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
	}, nil
}

// cancelOnClose releases the request context when the body stream is closed,
// so an inbound disconnect tears down the outbound stream promptly.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func localPath(root, contentPath string) string {
	return root + ensureLeadingSlash(contentPath)
}

func ensureLeadingSlash(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
