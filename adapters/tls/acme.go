// Package tls provides automatic HTTPS certificates through ACME (Let's Encrypt).
package tls

import (
	"context"
	cryptotls "crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
)

// letsEncryptStaging issues untrusted certificates with generous rate limits.
const letsEncryptStaging = "https://acme-staging-v02.api.letsencrypt.org/directory"

// ErrNoDomains is returned when no domain is configured.
var ErrNoDomains = errors.New("at least one domain is required for automatic TLS")

// Config configures certificate provisioning.
type Config struct {
	Domains  []string // exact names or "*.example.com" wildcards
	Email    string
	CacheDir string
	Staging  bool
	HTTPHost string
	HTTPPort int
}

// Manager provisions and renews certificates for the configured domains.
type Manager struct {
	autocert *autocert.Manager
	domains  []string
	httpAddr string
	logger   zerolog.Logger
}

// NewManager creates a certificate manager. Certificates are cached in cfg.CacheDir.
func NewManager(cfg Config, logger zerolog.Logger) (*Manager, error) {
	domains := make([]string, 0, len(cfg.Domains))
	for _, d := range cfg.Domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}
	if len(domains) == 0 {
		return nil, ErrNoDomains
	}

	m := &Manager{
		domains:  domains,
		httpAddr: net.JoinHostPort(cfg.HTTPHost, strconv.Itoa(cfg.HTTPPort)),
		logger:   logger,
	}
	m.autocert = &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Cache:      autocert.DirCache(cfg.CacheDir),
		HostPolicy: m.hostPolicy,
		Email:      cfg.Email,
	}
	if cfg.Staging {
		m.autocert.Client = &acme.Client{DirectoryURL: letsEncryptStaging}
	}
	return m, nil
}

// TLSConfig returns the server TLS configuration that fetches certificates on demand.
func (m *Manager) TLSConfig() *cryptotls.Config {
	cfg := m.autocert.TLSConfig()
	cfg.MinVersion = cryptotls.VersionTLS12
	return cfg
}

// ChallengeServer answers HTTP-01 challenges and redirects everything else to HTTPS.
func (m *Manager) ChallengeServer() *http.Server {
	return &http.Server{
		Addr:              m.httpAddr,
		Handler:           m.autocert.HTTPHandler(nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// hostPolicy accepts configured names and subdomains of wildcard entries.
func (m *Manager) hostPolicy(_ context.Context, host string) error {
	host = strings.ToLower(host)
	for _, d := range m.domains {
		if d == host {
			return nil
		}
		if suffix, ok := strings.CutPrefix(d, "*"); ok && strings.HasPrefix(suffix, ".") &&
			len(host) > len(suffix) && strings.HasSuffix(host, suffix) {
			return nil
		}
	}
	m.logger.Warn().Str("host", host).Strs("allowed", m.domains).Msg("tls host not allowed")
	return fmt.Errorf("host %q not in allowed domains", host)
}
