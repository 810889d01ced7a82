// Package corechecks reports core runtime configuration facts: cache, debug
// mode, security salt and the full base URL.
package corechecks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nimdassdev/passbolt-api/internal/usecase/healthcheck"
)

// CachePinger verifies the cache backend answers.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// Salt value shipped in the default configuration. An instance keeping it has
// not been set up.
const placeholderSalt = "__SALT__"

// statusPath is the endpoint the reachability probe requests on the
// instance's own base URL.
const statusPath = "/healthcheck/status.json"

const probeTimeout = 5 * time.Second

// Config holds the core settings under check.
type Config struct {
	Debug       bool
	Salt        string
	FullBaseURL string
}

// Service implements the core category.
type Service struct {
	cfg    Config
	cache  CachePinger
	client *http.Client
	logger *zap.Logger
}

// New creates a Service. cache may be nil when no cache backend is
// configured, in which case the in-process default counts as operational.
func New(cfg Config, cache CachePinger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:    cfg,
		cache:  cache,
		client: &http.Client{Timeout: probeTimeout},
		logger: logger,
	}
}

// Check reports the core facts. client, when non-nil, replaces the probe
// client, which lets a caller pin transport settings for the self request.
func (s *Service) Check(ctx context.Context, client *http.Client) *healthcheck.CoreChecks {
	checks := &healthcheck.CoreChecks{}
	checks.Info.FullBaseURL = s.cfg.FullBaseURL

	checks.Cache = s.cacheOperational(ctx)
	checks.DebugDisabled = !s.cfg.Debug
	checks.Salt = s.cfg.Salt != "" && s.cfg.Salt != placeholderSalt
	checks.FullBaseURL = s.cfg.FullBaseURL != ""

	u, err := url.Parse(s.cfg.FullBaseURL)
	valid := err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	checks.ValidFullBaseURL = valid

	if valid {
		probeURL := strings.TrimRight(s.cfg.FullBaseURL, "/") + statusPath
		checks.FullBaseURLReachable = s.reachable(ctx, client, probeURL)
	}

	return checks
}

func (s *Service) cacheOperational(ctx context.Context) bool {
	if s.cache == nil {
		return true
	}
	if err := s.cache.Ping(ctx); err != nil {
		s.logger.Debug("cache unreachable", zap.Error(err))
		return false
	}
	return true
}

func (s *Service) reachable(ctx context.Context, override *http.Client, probeURL string) bool {
	client := s.client
	if override != nil {
		client = override
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		s.logger.Debug("base url probe failed", zap.String("url", probeURL), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	if err != nil {
		return false
	}

	var status string
	if err := json.Unmarshal(body, &status); err != nil {
		return false
	}
	return status == "OK"
}
