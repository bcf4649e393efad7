// Package offline implements the app-shell cache: install precaches the
// asset list into a versioned namespace, activate evicts older versions,
// and RoundTrip serves same-origin GET requests cache-first.
package offline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"closing-journal/internal/errors"
	"closing-journal/internal/logging"
	"closing-journal/internal/performance"
	"closing-journal/internal/store"
)

// DefaultVersion names the cache namespace of the current app shell.
const DefaultVersion = "closing-trade-pwa-v1"

// installWorkers bounds concurrent asset downloads during Install.
const installWorkers = 4

// Worker is an http.RoundTripper backed by a versioned cache namespace.
type Worker struct {
	Store   store.CacheStore
	Version string
	Origin  string
	Assets  []string
	Next    http.RoundTripper
	Logger  zerolog.Logger

	originOnce sync.Once
	origin     *url.URL
	originErr  error
}

// NewWorker creates a worker for origin. A nil next uses
// http.DefaultTransport.
func NewWorker(cs store.CacheStore, version, origin string, assets []string, next http.RoundTripper, logger zerolog.Logger) (*Worker, error) {
	if version == "" {
		version = DefaultVersion
	}
	if next == nil {
		next = http.DefaultTransport
	}
	w := &Worker{
		Store:   cs,
		Version: version,
		Origin:  origin,
		Assets:  assets,
		Next:    next,
		Logger:  logger,
	}
	if _, err := w.base(); err != nil {
		return nil, err
	}
	return w, nil
}

// base parses Origin once; it works for workers built as literals too.
func (w *Worker) base() (*url.URL, error) {
	w.originOnce.Do(func() {
		u, err := url.Parse(w.Origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			w.originErr = errors.NewValidationError("origin", w.Origin, "absolute http(s) origin required")
			return
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		w.origin = u
	})
	return w.origin, w.originErr
}

func (w *Worker) next() http.RoundTripper {
	if w.Next == nil {
		return http.DefaultTransport
	}
	return w.Next
}

// Client returns an http.Client whose transport is the worker.
func (w *Worker) Client(timeout time.Duration) *http.Client {
	return &http.Client{Transport: w, Timeout: timeout}
}

// Resolve turns an asset path like ./index.html into an absolute URL under
// the origin.
func (w *Worker) Resolve(asset string) (string, error) {
	origin, err := w.base()
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(asset)
	if err != nil {
		return "", fmt.Errorf("parsing asset %q: %w", asset, err)
	}
	return origin.ResolveReference(ref).String(), nil
}

// Install fetches every asset and stores them in the Version namespace.
// Any failure aborts without storing anything.
func (w *Worker) Install(ctx context.Context) error {
	if err := w.Store.OpenCache(ctx, w.Version); err != nil {
		return err
	}

	targets := make([]string, 0, len(w.Assets))
	for _, asset := range w.Assets {
		target, err := w.Resolve(asset)
		if err != nil {
			return err
		}
		targets = append(targets, target)
	}

	var (
		mu      sync.Mutex
		entries = make([]*store.CachedResponse, 0, len(targets))
	)
	pool := performance.NewWorkerPool(ctx, installWorkers)
	for _, target := range targets {
		pool.Go(func(ctx context.Context) error {
			entry, err := w.download(ctx, target)
			if err != nil {
				return err
			}
			mu.Lock()
			entries = append(entries, entry)
			mu.Unlock()
			return nil
		})
	}
	err := pool.Wait()
	stats := pool.Stats()
	w.Logger.Debug().
		Str("cache", w.Version).
		Uint64("downloaded", stats.TasksDone).
		Uint64("failed", stats.TasksFailed).
		Msg("Offline install downloads finished")
	if err != nil {
		w.Logger.Error().Err(err).Str("cache", w.Version).Msg("Offline install failed")
		return errors.Wrapf(err, "installing %s", w.Version)
	}

	if err := w.Store.PutCache(ctx, w.Version, entries...); err != nil {
		return err
	}
	logging.LogCacheEvent(w.Logger, "installed", w.Version, strconv.Itoa(len(entries))+" assets")
	return nil
}

func (w *Worker) download(ctx context.Context, target string) (*store.CachedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.next().RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: HTTP %d", target, resp.StatusCode)
	}
	return capture(target, resp)
}

// Activate deletes every namespace other than Version.
func (w *Worker) Activate(ctx context.Context) error {
	names, err := w.Store.CacheNames(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == w.Version {
			continue
		}
		if _, err := w.Store.DeleteCache(ctx, name); err != nil {
			return err
		}
		logging.LogCacheEvent(w.Logger, "evicted", name, "")
	}
	return nil
}

// RoundTrip implements http.RoundTripper.
func (w *Worker) RoundTrip(req *http.Request) (*http.Response, error) {
	origin, err := w.base()
	if err != nil {
		return nil, err
	}
	if req.Method != http.MethodGet || !sameOrigin(req.URL, origin) {
		return w.next().RoundTrip(req)
	}

	ctx := req.Context()
	key := req.URL.String()

	cached, err := w.Store.MatchCache(ctx, w.Version, key)
	if err != nil {
		w.Logger.Warn().Err(err).Str("url", key).Msg("Cache lookup failed, using network")
	}
	if cached != nil {
		logging.LogCacheEvent(w.Logger, "hit", w.Version, key)
		return replay(req, cached), nil
	}

	resp, err := w.next().RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrCacheMiss, key, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, nil
	}

	entry, err := capture(key, resp)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if err := w.Store.PutCache(ctx, w.Version, entry); err != nil {
		w.Logger.Warn().Err(err).Str("url", key).Msg("Failed to store response")
	} else {
		logging.LogCacheEvent(w.Logger, "stored", w.Version, key)
	}
	return replay(req, entry), nil
}

func sameOrigin(u, origin *url.URL) bool {
	return strings.EqualFold(u.Scheme, origin.Scheme) && strings.EqualFold(u.Host, origin.Host)
}

func capture(target string, resp *http.Response) (*store.CachedResponse, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", target, err)
	}
	return &store.CachedResponse{
		URL:        target,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		StoredAt:   time.Now(),
	}, nil
}

func replay(req *http.Request, c *store.CachedResponse) *http.Response {
	header := c.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        strconv.Itoa(c.StatusCode) + " " + http.StatusText(c.StatusCode),
		StatusCode:    c.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(c.Body)),
		ContentLength: int64(len(c.Body)),
		Request:       req,
	}
}
