// Package remote queries the public release feed for the latest published
// version.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nimdassdev/passbolt-api/internal/metrics"
	"github.com/nimdassdev/passbolt-api/internal/version"
)

const defaultTimeout = 10 * time.Second

// Config holds the release feed settings.
type Config struct {
	URL     string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Fetcher reads the latest release tag from the feed.
type Fetcher struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// LatestVersion returns the newest published version, without the leading v
// the release tags carry.
func (f *Fetcher) LatestVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return "", fmt.Errorf("build release request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "passbolt-api/"+version.AppVersion)

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.VersionFetchesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.VersionFetchesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("release feed returned %s", resp.Status)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&release); err != nil {
		metrics.VersionFetchesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("decode release payload: %w", err)
	}

	latest := strings.TrimPrefix(strings.TrimSpace(release.TagName), "v")
	if latest == "" {
		metrics.VersionFetchesTotal.WithLabelValues("error").Inc()
		return "", errors.New("release payload has no tag name")
	}

	metrics.VersionFetchesTotal.WithLabelValues("success").Inc()
	f.logger.Debug("latest release fetched", zap.String("version", latest))
	return latest, nil
}
