// Package report fetches the daily auto-candidate report published next to
// the app shell.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"closing-journal/internal/errors"
	"closing-journal/internal/logging"
	"closing-journal/internal/models"
)

// DefaultPath is the report location relative to the app origin.
const DefaultPath = "reports/today.json"

// MaxBodySize bounds how much of a report response is read.
const MaxBodySize = 4 << 20

// Fetcher loads and validates the daily report.
type Fetcher struct {
	BaseURL string
	Path    string
	Client  *http.Client
	Logger  zerolog.Logger

	now func() time.Time
}

// NewFetcher creates a fetcher for baseURL/path. A nil client uses
// http.DefaultClient.
func NewFetcher(baseURL, path string, client *http.Client, logger zerolog.Logger) *Fetcher {
	if path == "" {
		path = DefaultPath
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		BaseURL: baseURL,
		Path:    path,
		Client:  client,
		Logger:  logger,
		now:     time.Now,
	}
}

// URL returns the report address without a cache-busting parameter.
func (f *Fetcher) URL() string {
	return strings.TrimRight(f.BaseURL, "/") + "/" + strings.TrimLeft(f.Path, "./")
}

// Fetch downloads the report. With bust set a ts query parameter defeats
// intermediate caches. Every failure is a *errors.ReportError.
func (f *Fetcher) Fetch(ctx context.Context, bust bool) (*models.Report, error) {
	target := f.URL()
	if bust {
		u, err := url.Parse(target)
		if err != nil {
			return nil, errors.NewReportError(target, 0, err)
		}
		q := u.Query()
		q.Set("ts", strconv.FormatInt(f.clock().UnixMilli(), 10))
		u.RawQuery = q.Encode()
		target = u.String()
	}

	start := time.Now()
	rep, err := f.fetch(ctx, target)
	logging.LogAPICall(f.Logger, http.MethodGet, target, time.Since(start), err)
	return rep, err
}

func (f *Fetcher) fetch(ctx context.Context, target string) (*models.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.NewReportError(target, 0, err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, errors.NewReportError(target, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodySize))
		return nil, errors.NewReportError(target, resp.StatusCode, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, errors.NewReportError(target, 0, err)
	}

	rep, err := Decode(body)
	if err != nil {
		return nil, errors.NewReportError(target, 0, err)
	}
	return rep, nil
}

func (f *Fetcher) clock() time.Time {
	if f.now == nil {
		return time.Now()
	}
	return f.now()
}

// Decode parses and validates a report document.
func Decode(data []byte) (*models.Report, error) {
	var rep models.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	if err := Validate(&rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// Validate checks the fields the auto panel relies on.
func Validate(rep *models.Report) error {
	for i, c := range rep.Candidates {
		if strings.TrimSpace(c.Code) == "" {
			return errors.NewValidationError(fmt.Sprintf("candidates[%d].code", i), c.Code, "candidate code is required")
		}
	}
	return nil
}

// GeneratedAt renders the generation timestamp for display: the date/time
// separator becomes a space and a trailing +09:00 offset is dropped.
func GeneratedAt(rep *models.Report) string {
	if rep == nil || rep.GeneratedAt == "" {
		return "-"
	}
	s := strings.Replace(rep.GeneratedAt, "T", " ", 1)
	return strings.TrimSuffix(s, "+09:00")
}
