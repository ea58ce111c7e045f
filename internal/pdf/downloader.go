// Package pdf downloads PDF files and extracts their text for the citation
// pipeline.
package pdf

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultMaxSize   = 50 * 1024 * 1024
	defaultUserAgent = "papertrail/1.0 (+https://github.com/blackprince001/papertrail)"
	maxRedirects     = 10
)

var (
	// ErrNotPDF means the response Content-Type was not application/pdf.
	ErrNotPDF = errors.New("pdf: response is not a PDF")
	// ErrTooLarge means the body exceeded the configured size cap.
	ErrTooLarge = errors.New("pdf: file exceeds maximum size")
	// ErrDownloadFailed covers network and HTTP-status failures.
	ErrDownloadFailed = errors.New("pdf: download failed")
	// ErrSSRF means the URL resolved to a private or internal address.
	ErrSSRF = errors.New("pdf: request to private network denied")
)

// DownloadResult is a fetched PDF plus its content digest.
type DownloadResult struct {
	Content     []byte
	ContentHash string // SHA-256 hex digest
	SizeBytes   int64
	ContentType string
}

// Config holds downloader settings. Zero values pick sensible defaults:
// 60s timeout, 50MB cap, a papertrail User-Agent.
type Config struct {
	Timeout   time.Duration
	MaxSize   int64
	UserAgent string

	// AllowPrivateNetworks disables the private-address checks so tests can
	// download from httptest servers on loopback. Never enable in production.
	AllowPrivateNetworks bool
}

// Downloader fetches PDFs over HTTP with size and network restrictions.
type Downloader struct {
	client               *http.Client
	maxSize              int64
	userAgent            string
	allowPrivateNetworks bool
}

// NewDownloader builds a Downloader from cfg, filling in defaults for any
// zero fields.
func NewDownloader(cfg Config) *Downloader {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = defaultMaxSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	d := &Downloader{
		maxSize:              cfg.MaxSize,
		userAgent:            cfg.UserAgent,
		allowPrivateNetworks: cfg.AllowPrivateNetworks,
	}

	// Redirects are re-checked so an open redirect cannot land the request
	// on an internal address.
	d.client = &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("%w: too many redirects", ErrSSRF)
			}
			if d.allowPrivateNetworks {
				return nil
			}
			return validateURLNotPrivate(req.URL.String())
		},
	}

	return d
}

// Download fetches url and returns the bytes with their SHA-256 digest.
// Non-PDF responses, oversized bodies, non-2xx statuses, and URLs that
// resolve to private addresses map to the package sentinel errors.
func (d *Downloader) Download(ctx context.Context, url string) (*DownloadResult, error) {
	if !d.allowPrivateNetworks {
		if err := validateURLNotPrivate(url); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %w", ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/pdf, */*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrDownloadFailed, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return nil, fmt.Errorf("%w: Content-Type is %q", ErrNotPDF, contentType)
	}

	// One byte past the cap distinguishes an exactly-full body from an
	// oversized one.
	content, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrDownloadFailed, err)
	}
	if int64(len(content)) > d.maxSize {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrTooLarge, d.maxSize)
	}

	digest := sha256.Sum256(content)

	return &DownloadResult{
		Content:     content,
		ContentHash: hex.EncodeToString(digest[:]),
		SizeBytes:   int64(len(content)),
		ContentType: contentType,
	}, nil
}

// validateURLNotPrivate parses rawURL, restricts it to http(s), and rejects
// hosts whose DNS resolution includes a private address.
func validateURLNotPrivate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSSRF, err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q is not allowed", ErrSSRF, parsed.Scheme)
	}

	host := parsed.Hostname()
	addrs, err := net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("%w: DNS lookup failed for %s: %w", ErrDownloadFailed, host, err)
	}
	for _, addr := range addrs {
		if ip := net.ParseIP(addr); ip != nil && isPrivateIP(ip) {
			return fmt.Errorf("%w: %s resolves to private address %s", ErrSSRF, host, addr)
		}
	}
	return nil
}

// isPrivateIP reports whether ip sits in a loopback, link-local, or
// RFC 1918 / ULA private range.
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
