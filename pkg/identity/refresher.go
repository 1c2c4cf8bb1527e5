package identity

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/lestrrat-go/jwx/jwk"
	"github.com/rs/zerolog"

	"github.com/veeringman/KeyCortex/pkg/log"
	"github.com/veeringman/KeyCortex/pkg/metrics"
)

const (
	// DefaultRefreshInterval is used when no interval is configured
	DefaultRefreshInterval = 60 * time.Second

	// MinRefreshInterval is the floor applied to configured intervals
	MinRefreshInterval = 10 * time.Second

	// maxBackoff caps the sleep between failed refresh attempts
	maxBackoff = 300 * time.Second

	jwksFetchTimeout = 10 * time.Second
)

// RefresherConfig selects the JWKS sources and cadence
type RefresherConfig struct {
	// URL is tried first each iteration when non-empty
	URL string

	// Path is the file fallback tried when the URL is unset or failed
	Path string

	// Interval is the base refresh cadence; backoff multiplies it
	Interval time.Duration
}

// Refresher reloads the verifier's JWKS in the background for the
// process lifetime. Each iteration tries the URL, then the file; on
// repeated failure the sleep backs off exponentially up to five
// doublings, capped at 300s.
type Refresher struct {
	verifier *Verifier
	url      string
	path     string
	interval time.Duration
	client   *http.Client
	logger   zerolog.Logger
	stopCh   chan struct{}
}

// NewRefresher creates a refresher for the given verifier. Intervals
// below the floor are raised to it.
func NewRefresher(v *Verifier, cfg RefresherConfig) *Refresher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if interval < MinRefreshInterval {
		interval = MinRefreshInterval
	}
	return &Refresher{
		verifier: v,
		url:      cfg.URL,
		path:     cfg.Path,
		interval: interval,
		client:   &http.Client{Timeout: jwksFetchTimeout},
		logger:   log.WithComponent("jwks-refresher"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background refresh loop. The first attempt runs
// immediately.
func (r *Refresher) Start() {
	go r.run()
}

// Stop terminates the refresh loop
func (r *Refresher) Stop() {
	close(r.stopCh)
}

func (r *Refresher) run() {
	var failures uint

	for {
		if r.refreshOnce() {
			failures = 0
			metrics.JWKSRefreshTotal.WithLabelValues("success").Inc()
		} else {
			if failures < 32 {
				failures++
			}
			metrics.JWKSRefreshTotal.WithLabelValues("failure").Inc()
		}

		select {
		case <-time.After(r.sleepFor(failures)):
		case <-r.stopCh:
			return
		}
	}
}

// sleepFor returns the base interval after a success, or
// interval * 2^min(failures,5) capped at maxBackoff after failures
func (r *Refresher) sleepFor(failures uint) time.Duration {
	if failures == 0 {
		return r.interval
	}
	shift := failures
	if shift > 5 {
		shift = 5
	}
	backoff := r.interval * (1 << shift)
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

// refreshOnce attempts one reload, URL first then file, and reports
// whether either source produced a usable key set
func (r *Refresher) refreshOnce() bool {
	if r.url != "" {
		if err := r.refreshFromURL(); err != nil {
			r.verifier.recordRefreshError(fmt.Sprintf("url refresh failed: %v", err))
			r.logger.Warn().Err(err).Str("url", r.url).Msg("failed to refresh AuthBuddy JWKS from URL")
		} else {
			r.logger.Info().Str("url", r.url).Msg("reloaded AuthBuddy JWKS from URL")
			return true
		}
	}

	if r.path != "" {
		content, err := os.ReadFile(r.path)
		if err != nil {
			r.verifier.recordRefreshError(fmt.Sprintf("file read failed: %v", err))
			r.logger.Warn().Err(err).Str("path", r.path).Msg("failed to read AuthBuddy JWKS file")
			return false
		}
		set, err := jwk.Parse(content)
		if err != nil {
			r.verifier.recordRefreshError(fmt.Sprintf("file parse failed: %v", err))
			r.logger.Warn().Err(err).Str("path", r.path).Msg("failed to parse AuthBuddy JWKS file")
			return false
		}
		r.verifier.setKeys(set)
		r.logger.Info().Str("path", r.path).Msg("reloaded AuthBuddy JWKS from file")
		return true
	}

	return false
}

func (r *Refresher) refreshFromURL() error {
	resp, err := r.client.Get(r.url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read JWKS body: %w", err)
	}
	set, err := jwk.Parse(body)
	if err != nil {
		return fmt.Errorf("failed to parse JWKS document: %w", err)
	}

	r.verifier.setKeys(set)
	return nil
}
