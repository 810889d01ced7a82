// Package ssl probes the TLS endpoint behind the application's full base URL.
package ssl

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/nimdassdev/passbolt-api/internal/usecase/healthcheck"
)

const defaultTimeout = 10 * time.Second

// Checker performs TLS handshakes against the instance's own endpoint.
type Checker struct {
	fullBaseURL string
	rootCAs     *x509.CertPool
	timeout     time.Duration
	logger      *zap.Logger
}

// NewChecker creates a Checker for the given full base URL. The URL is
// validated at check time, not here, so a misconfigured instance still gets a
// report instead of a construction error.
func NewChecker(fullBaseURL string, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		fullBaseURL: fullBaseURL,
		timeout:     defaultTimeout,
		logger:      logger,
	}
}

// WithRootCAs overrides the trust anchors used for peer validation. Nil keeps
// the system pool.
func (c *Checker) WithRootCAs(pool *x509.CertPool) *Checker {
	c.rootCAs = pool
	return c
}

// WithTimeout overrides the per-handshake timeout.
func (c *Checker) WithTimeout(timeout time.Duration) *Checker {
	if timeout > 0 {
		c.timeout = timeout
	}
	return c
}

// Check reports the ssl category facts. Each failed probe overwrites Info, so
// the report carries the detail of the last failure.
func (c *Checker) Check(ctx context.Context) *healthcheck.SSLChecks {
	checks := &healthcheck.SSLChecks{}
	setInfo := func(err error) {
		msg := err.Error()
		checks.Info = &msg
	}

	addr, host, err := c.dialTarget()
	if err != nil {
		c.logger.Debug("ssl target unusable", zap.Error(err))
		setInfo(err)
		return checks
	}

	leaf, err := c.handshake(ctx, addr, &tls.Config{
		RootCAs:    c.rootCAs,
		ServerName: host,
	})
	if err != nil {
		c.logger.Debug("verified handshake failed", zap.String("addr", addr), zap.Error(err))
		setInfo(err)
		// Retry without verification so the leaf can still be inspected.
		leaf, err = c.handshake(ctx, addr, &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: true,
		})
		if err != nil {
			setInfo(err)
			return checks
		}
	} else {
		checks.PeerValid = true
	}

	if err := leaf.VerifyHostname(host); err != nil {
		setInfo(err)
	} else {
		checks.HostValid = true
	}

	checks.NotSelfSigned = !isSelfSigned(leaf)

	return checks
}

func (c *Checker) dialTarget() (addr, host string, err error) {
	u, err := url.Parse(c.fullBaseURL)
	if err != nil {
		return "", "", fmt.Errorf("parse full base url: %w", err)
	}
	host = u.Hostname()
	if host == "" {
		return "", "", fmt.Errorf("full base url %q has no host", c.fullBaseURL)
	}
	port := u.Port()
	if port == "" {
		port = "443"
	}
	return net.JoinHostPort(host, port), host, nil
}

func (c *Checker) handshake(ctx context.Context, addr string, cfg *tls.Config) (*x509.Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: c.timeout},
		Config:    cfg,
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, errors.New("no peer certificate presented")
	}
	return state.PeerCertificates[0], nil
}

// isSelfSigned reports whether the certificate signed itself. CheckSignature
// is used directly rather than CheckSignatureFrom, which enforces CA
// constraints self-signed leaves do not carry.
func isSelfSigned(cert *x509.Certificate) bool {
	if !bytes.Equal(cert.RawIssuer, cert.RawSubject) {
		return false
	}
	return cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature) == nil
}
