// Package fetch downloads remote spreadsheet documents as raw xlsx bytes.
//
// Two download paths exist. The authenticated path builds a short-lived
// bearer token from a signed assertion over a service-account identity,
// requests a CSV export through the Drive API, and converts the CSV to
// xlsx. Any failure there (missing credentials, token exchange, network,
// status, timeout) triggers a transparent fallback to a direct
// unauthenticated export request bounded by a hard wall-clock timeout.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/oauth2/google"

	"sheetmigrate/internal/config"
)

// ErrDownloadTimeout is returned when the direct download path exceeds
// its hard wall-clock limit.
var ErrDownloadTimeout = errors.New("download timed out")

// driveReadOnlyScope is the narrowest scope that allows exporting a
// spreadsheet the service identity can read.
const driveReadOnlyScope = "https://www.googleapis.com/auth/drive.readonly"

// MaxDocumentSize caps how many bytes a single download may produce (200MB).
var MaxDocumentSize int64 = 200 * 1024 * 1024

// Client fetches spreadsheet documents.
type Client struct {
	creds           []byte // service-account JSON key; nil disables the auth path
	downloadTimeout time.Duration
	probeTimeout    time.Duration
	logger          *slog.Logger

	// Overridable in tests.
	authBase   string
	exportBase string
}

// NewClient builds a fetch client from configuration. A missing or
// unreadable credentials file disables the authenticated path with a
// warning rather than failing: the direct path may still succeed.
func NewClient(cfg config.FetchConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	var creds []byte
	if cfg.CredentialsFile != "" {
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			logger.Warn("service-account key unreadable, authenticated path disabled",
				"path", cfg.CredentialsFile, "error", err)
		} else {
			creds = b
		}
	}

	return &Client{
		creds:           creds,
		downloadTimeout: cfg.DownloadTimeout,
		probeTimeout:    cfg.ProbeTimeout,
		logger:          logger,
		authBase:        "https://www.googleapis.com/drive/v3/files",
		exportBase:      "https://docs.google.com/spreadsheets/d",
	}
}

// Download fetches a spreadsheet as xlsx bytes. The authenticated path is
// tried first; on any failure the direct unauthenticated export path is
// attempted before the download is reported failed.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	id, err := SpreadsheetID(rawURL)
	if err != nil {
		return nil, err
	}

	data, authErr := c.downloadAuthenticated(ctx, id)
	if authErr == nil {
		return data, nil
	}
	c.logger.Warn("authenticated download failed, falling back to direct export",
		"spreadsheet_id", id, "error", authErr)

	data, err = c.downloadDirect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("both download paths failed (auth: %v): %w", authErr, err)
	}
	return data, nil
}

// downloadAuthenticated exports the document as CSV through the Drive API
// using a bearer token minted from the service-account key, then converts
// the CSV to xlsx.
func (c *Client) downloadAuthenticated(ctx context.Context, id string) ([]byte, error) {
	if len(c.creds) == 0 {
		return nil, errors.New("no service-account credentials configured")
	}

	jwtCfg, err := google.JWTConfigFromJSON(c.creds, driveReadOnlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse service-account key: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	// jwtCfg.Client exchanges a signed assertion for a short-lived
	// bearer token and attaches it to every request.
	httpClient := jwtCfg.Client(ctx)

	exportURL := fmt.Sprintf("%s/%s/export?mimeType=%s",
		c.authBase, id, url.QueryEscape("text/csv"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authenticated export request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("authenticated export returned status %d", resp.StatusCode)
	}

	csvData, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("read export body: %w", err)
	}

	return csvToXLSX(csvData)
}

// downloadDirect performs a plain unauthenticated export request.
// Redirects are followed; the whole attempt is bounded by the hard
// download timeout.
func (c *Client) downloadDirect(ctx context.Context, id string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	exportURL := fmt.Sprintf("%s/%s/export?format=xlsx", c.exportBase, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w after %s", ErrDownloadTimeout, c.downloadTimeout)
		}
		return nil, fmt.Errorf("direct export request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("direct export returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w after %s", ErrDownloadTimeout, c.downloadTimeout)
		}
		return nil, fmt.Errorf("read export body: %w", err)
	}
	return data, nil
}

// ValidateAccess probes whether the document's export endpoint answers at
// all. It never returns an error: any failure reads as false.
func (c *Client) ValidateAccess(ctx context.Context, rawURL string) bool {
	id, err := SpreadsheetID(rawURL)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	probeURL := fmt.Sprintf("%s/%s/export?format=xlsx", c.exportBase, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < http.StatusBadRequest
}

// isTimeout reports whether err represents a deadline or timeout failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Timeout()
	}
	return false
}
