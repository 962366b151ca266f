package timesync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tnicklin/birthday_countdown/timeutil"
)

const maxBodyBytes = 64 * 1024

// Source reports the current instant according to some external clock.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (time.Time, error)
}

var (
	_ Source = (*JSONSource)(nil)
	_ Source = (*HeaderSource)(nil)
)

// HTTPParams holds transport settings shared by HTTP sources.
type HTTPParams struct {
	UserAgent  string
	HTTPClient *http.Client
}

func (p HTTPParams) client() *http.Client {
	if p.HTTPClient == nil {
		return http.DefaultClient
	}
	return p.HTTPClient
}

// JSONSource reads an instant from a JSON time API.
type JSONSource struct {
	name      string
	url       string
	userAgent string
	http      *http.Client
}

// NewJSONSource creates a source for a JSON time API.
func NewJSONSource(name, url string, p HTTPParams) *JSONSource {
	return &JSONSource{
		name:      name,
		url:       url,
		userAgent: p.UserAgent,
		http:      p.client(),
	}
}

func (s *JSONSource) Name() string { return s.name }

func (s *JSONSource) Fetch(ctx context.Context) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return time.Time{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return time.Time{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return time.Time{}, fmt.Errorf("%w %d: %s", ErrBadStatus, resp.StatusCode, string(body))
	}

	return ParseInstant(body)
}

// HeaderSource reads the Date header of an arbitrary HTTPS response.
type HeaderSource struct {
	name      string
	url       string
	userAgent string
	http      *http.Client
}

// NewHeaderSource creates a source that trusts the Date header of url.
func NewHeaderSource(name, url string, p HTTPParams) *HeaderSource {
	return &HeaderSource{
		name:      name,
		url:       url,
		userAgent: p.UserAgent,
		http:      p.client(),
	}
}

func (s *HeaderSource) Name() string { return s.name }

func (s *HeaderSource) Fetch(ctx context.Context) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.url, nil)
	if err != nil {
		return time.Time{}, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return time.Time{}, fmt.Errorf("%w %d", ErrBadStatus, resp.StatusCode)
	}

	date := resp.Header.Get("Date")
	if date == "" {
		return time.Time{}, fmt.Errorf("%w: missing Date header", ErrUnrecognizedFormat)
	}
	t, err := timeutil.ParseHTTPDate(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	return t, nil
}

// BuildSources returns the configured sources in priority order: primary,
// fallbacks, NTP, then the Date header fallback.
func BuildSources(cfg Config) []Source {
	p := HTTPParams{UserAgent: cfg.UserAgent, HTTPClient: cfg.HTTPClient}

	var sources []Source
	if cfg.PrimaryURL != "" {
		sources = append(sources, NewJSONSource("primary", cfg.PrimaryURL, p))
	}
	for i, u := range cfg.FallbackURLs {
		if u == "" {
			continue
		}
		sources = append(sources, NewJSONSource(fmt.Sprintf("fallback-%d", i+1), u, p))
	}
	if cfg.NTPServer != "" {
		sources = append(sources, NewNTPSource(cfg.NTPServer))
	}
	if cfg.HeaderURL != "" {
		sources = append(sources, NewHeaderSource("date-header", cfg.HeaderURL, p))
	}
	return sources
}
