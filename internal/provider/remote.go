package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Tiliavir/astro-journal/internal/model"
)

// RemoteConfig configures the enrichment client. TokenURL enables the OAuth2
// client-credentials flow; without it requests are sent unauthenticated.
type RemoteConfig struct {
	URL          string
	Timeout      time.Duration
	MaxRetries   int
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// TokenCache, when set, is a file where access tokens are kept between
	// runs.
	TokenCache string
}

// Remote asks an HTTP enrichment service for snapshots.
type Remote struct {
	client     *resty.Client
	endpoint   string
	maxRetries int
	backoff    func() *backoff.ExponentialBackOff
	log        zerolog.Logger
}

type snapshotRequest struct {
	Time     string `json:"time"`
	Location string `json:"location,omitempty"`
}

// NewRemote creates a client for cfg.URL.
func NewRemote(cfg RemoteConfig, log zerolog.Logger) *Remote {
	var c *resty.Client
	if cfg.TokenURL != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		ts := cc.TokenSource(context.Background())
		if cfg.TokenCache != "" {
			ts = cachedTokenSource(cfg.TokenCache, ts, log)
		}
		c = resty.NewWithClient(oauth2.NewClient(context.Background(), ts))
	} else {
		c = resty.New()
	}
	c.SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}

	return &Remote{
		client:     c,
		endpoint:   cfg.URL,
		maxRetries: max(cfg.MaxRetries, 0),
		backoff: func() *backoff.ExponentialBackOff {
			exp := backoff.NewExponentialBackOff()
			exp.InitialInterval = 250 * time.Millisecond
			exp.Multiplier = 2
			exp.MaxInterval = 2 * time.Second
			exp.Reset()
			return exp
		},
		log: log.With().Str("component", "enrichment").Logger(),
	}
}

// Snapshot posts the instant and location to the service. Transport errors
// and 5xx replies are retried; quota refusals and malformed payloads are not.
// Every failure wraps ErrEnrichmentUnavailable.
func (r *Remote) Snapshot(ctx context.Context, t time.Time, locationHint string) (model.PlanetaryInfo, error) {
	req := snapshotRequest{Time: t.Format(time.RFC3339), Location: locationHint}

	var info model.PlanetaryInfo
	op := func() error {
		resp, err := r.client.R().
			SetContext(ctx).
			SetBody(&req).
			Post(r.endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("enrichment request: %w", err)
		}

		status := resp.StatusCode()
		switch {
		case status == http.StatusTooManyRequests,
			status >= 400 && strings.Contains(strings.ToLower(resp.String()), "quota"):
			return backoff.Permanent(fmt.Errorf("%w: status %d", ErrQuotaExceeded, status))
		case status >= 500:
			return fmt.Errorf("enrichment status %d", status)
		case status != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("enrichment status %d: %s", status, resp.String()))
		}

		parsed, err := decodeSnapshot(resp.Body(), locationHint)
		if err != nil {
			return backoff.Permanent(err)
		}
		info = parsed
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(r.backoff(), uint64(r.maxRetries)), ctx)
	notify := func(err error, wait time.Duration) {
		r.log.Debug().Err(err).Dur("retry_in", wait).Msg("enrichment attempt failed")
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return model.PlanetaryInfo{}, fmt.Errorf("%w: %w", ErrEnrichmentUnavailable, err)
	}
	return info, nil
}
